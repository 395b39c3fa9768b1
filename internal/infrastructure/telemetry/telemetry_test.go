package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func testConfig(level string) *config.OTLPConfig {
	return &config.OTLPConfig{ServiceName: "catalog-test", Environment: "test", LogLevel: level}
}

func TestLogger_InjectsTraceAndRoute(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(testConfig("info"), buf)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	ctx = WithHTTPRoute(ctx, "/api/v1/products")

	logger.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
	assert.Equal(t, "/api/v1/products", record["http.route"])
	assert.Equal(t, "catalog-test", record["service.name"])
}

func TestLogger_LevelFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(testConfig("warn"), buf)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_InjectsProductID(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(testConfig("info"), buf)

	ctx := WithHTTPRoute(context.Background(), "/api/v1/products/productId")
	ctx = WithProductID(ctx, "B0C7XQ12AB")

	logger.InfoContext(ctx, "lookup")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "B0C7XQ12AB", record["request.product_id"])
	assert.Equal(t, "/api/v1/products/productId", record["http.route"])
	assert.NotContains(t, record, "trace_id")
}

func TestLogFields_Empty(t *testing.T) {
	assert.Empty(t, HTTPRouteFromContext(context.Background()))
	assert.Empty(t, ProductIDFromContext(context.Background()))
}

func TestLogFields_SettersKeepEachOther(t *testing.T) {
	ctx := WithProductID(context.Background(), "SKU-1")
	ctx = WithHTTPRoute(ctx, "/products")

	assert.Equal(t, "SKU-1", ProductIDFromContext(ctx))
	assert.Equal(t, "/products", HTTPRouteFromContext(ctx))
}

func TestNoOpTelemetry_ServesMetrics(t *testing.T) {
	telem, err := NewNoOpTelemetry(testConfig("error"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = telem.Shutdown(context.Background()) })

	counter, err := telem.MeterProvider.Meter("test").Int64Counter("catalog.test.requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(telem.Registry, promhttp.HandlerOpts{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_test_requests")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
