package http

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const headphonesJSON = `{"productId":"B0C7XQ12AB","title":"Wireless Bluetooth Headphones","brand":"SoundMax","manufacturer":"SoundMax Electronics Pvt Ltd","price":129.99}`

// panickingRepository blows up on reads
type panickingRepository struct {
	domain.ProductRepository
}

func (panickingRepository) FindAll(context.Context) iter.Seq2[*domain.Product, error] {
	panic("cursor state corrupted: mongodb://admin:secret@db")
}

func newTestServer(t *testing.T, cfg config.ServerConfig, repo domain.ProductRepository) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	if repo == nil {
		repo = memory.NewProductRepository(tracer, logger, true)
	}
	svc := service.NewProductService(repo, service.Options{UniqueProductID: true}, tracer,
		metricnoop.NewMeterProvider().Meter("test"), logger)
	dispatcher := response.NewDispatcher(logger)
	h := handler.NewProductHandler(svc, dispatcher, logger, cfg.MaxBodyBytes)

	return NewServer(&cfg, h, dispatcher, logger, metricnoop.NewMeterProvider(), prometheus.NewRegistry()).Handler()
}

func defaultConfig() config.ServerConfig {
	return config.ServerConfig{Host: "127.0.0.1", Port: "0", BasePath: "/api/v1"}
}

func send(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.APIErrorResponse {
	t.Helper()
	var body response.APIErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServer_CreateThenLookup(t *testing.T) {
	srv := newTestServer(t, defaultConfig(), nil)

	created := send(srv, http.MethodPost, "/api/v1/products", headphonesJSON)
	require.Equal(t, http.StatusCreated, created.Code)
	assert.JSONEq(t, headphonesJSON, created.Body.String())

	found := send(srv, http.MethodGet, "/api/v1/products/productId?productId=B0C7XQ12AB", "")
	require.Equal(t, http.StatusOK, found.Code)
	assert.JSONEq(t, headphonesJSON, found.Body.String())

	list := send(srv, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, "["+headphonesJSON+"]", list.Body.String())
}

func TestServer_BulkWithMissingIDPersistsNothing(t *testing.T) {
	srv := newTestServer(t, defaultConfig(), nil)
	body := `[{"productId":"A1","title":"x","price":1},{"title":"y","price":2},{"productId":"A3","title":"z","price":3}]`

	rec := send(srv, http.MethodPost, "/api/v1/products/bulk", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SB_PL_INVALID_INPUT_DATA", decodeError(t, rec).Code)

	list := send(srv, http.MethodGet, "/api/v1/products", "")
	assert.JSONEq(t, `[]`, list.Body.String())
}

func TestServer_UnknownProductID(t *testing.T) {
	srv := newTestServer(t, defaultConfig(), nil)

	rec := send(srv, http.MethodGet, "/api/v1/products/productId?productId=DOES_NOT_EXIST", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_PRODUCT_ID", body.Code)
	assert.Equal(t, "BUSINESS", body.Type)
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestServer_PanicBecomesInternalError(t *testing.T) {
	srv := newTestServer(t, defaultConfig(), panickingRepository{})

	rec := send(srv, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "goroutine")

	body := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "TECHNICAL", body.Type)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
}

func TestServer_AuthorizationFilter(t *testing.T) {
	cfg := defaultConfig()
	cfg.AuthRequired = true
	srv := newTestServer(t, cfg, nil)

	rec := send(srv, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SB_PL_UNAUTHORIZED", decodeError(t, rec).Code)

	rec = send(srv, http.MethodGet, "/api/v1/products", "", "Authorization", "Bearer abc")
	assert.Equal(t, http.StatusOK, rec.Code)

	// operational endpoints stay open
	assert.Equal(t, http.StatusOK, send(srv, http.MethodGet, "/health", "").Code)
}

func TestServer_CustomBasePath(t *testing.T) {
	cfg := defaultConfig()
	cfg.BasePath = "/catalog"
	srv := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, send(srv, http.MethodGet, "/catalog/products", "").Code)
	assert.Equal(t, http.StatusNotFound, send(srv, http.MethodGet, "/api/v1/products", "").Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, defaultConfig(), nil)

	health := send(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "OK", health.Body.String())

	metrics := send(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
}
