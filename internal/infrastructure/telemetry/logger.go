package telemetry

import (
	"context"
	"io"
	"log/slog"

	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

type logFieldsKey struct{}

// logFields are the request-scoped values every catalog log record carries
type logFields struct {
	route     string
	productID string
}

func fieldsFrom(ctx context.Context) logFields {
	f, _ := ctx.Value(logFieldsKey{}).(logFields)
	return f
}

// WithHTTPRoute records the matched route pattern for later log records
func WithHTTPRoute(ctx context.Context, route string) context.Context {
	f := fieldsFrom(ctx)
	f.route = route
	return context.WithValue(ctx, logFieldsKey{}, f)
}

// HTTPRouteFromContext returns the route set by WithHTTPRoute, or ""
func HTTPRouteFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).route
}

// WithProductID records the product id a request operates on, so service and
// storage logs for that request can be filtered by it.
func WithProductID(ctx context.Context, productID string) context.Context {
	f := fieldsFrom(ctx)
	f.productID = productID
	return context.WithValue(ctx, logFieldsKey{}, f)
}

// ProductIDFromContext returns the id set by WithProductID, or ""
func ProductIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).productID
}

// catalogHandler decorates records with the span and request fields found on
// the context passed to the *Context logging methods.
type catalogHandler struct {
	next slog.Handler
}

func (h *catalogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *catalogHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	f := fieldsFrom(ctx)
	if f.route != "" {
		r.AddAttrs(slog.String("http.route", f.route))
	}
	if f.productID != "" {
		r.AddAttrs(slog.String("request.product_id", f.productID))
	}

	return h.next.Handle(ctx, r)
}

func (h *catalogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &catalogHandler{next: h.next.WithAttrs(attrs)}
}

func (h *catalogHandler) WithGroup(name string) slog.Handler {
	return &catalogHandler{next: h.next.WithGroup(name)}
}

// NewLogger builds the JSON logger used across the service. The level comes
// from OTLP_LOG_LEVEL; an unparsable value falls back to INFO.
func NewLogger(cfg *config.OTLPConfig, w io.Writer) *slog.Logger {
	level, _ := cfg.Level()

	return slog.New(&catalogHandler{
		next: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
	}).With(
		slog.String("service.name", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}
