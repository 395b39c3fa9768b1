package response

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
)

const (
	InternalErrorCode    = "INTERNAL_ERROR"
	internalErrorMessage = "Something went wrong. Please try again later."
)

// APIErrorResponse is the error envelope returned to clients
type APIErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// FromCode builds the envelope for a classified failure
func FromCode(code apperr.Code, now time.Time) APIErrorResponse {
	return APIErrorResponse{
		Code:      code.Key,
		Message:   code.Label,
		Type:      string(code.Type),
		Status:    code.Status,
		Timestamp: now.UTC(),
	}
}

// InternalError builds the envelope for an unclassified failure
func InternalError(now time.Time) APIErrorResponse {
	return APIErrorResponse{
		Code:      InternalErrorCode,
		Message:   internalErrorMessage,
		Type:      string(apperr.TypeTechnical),
		Status:    http.StatusInternalServerError,
		Timestamp: now.UTC(),
	}
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Dispatcher turns failures into error responses and emits one
// severity-tagged log record per failure.
type Dispatcher struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher logging to logger
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger, now: time.Now}
}

// WithClock replaces the timestamp source
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	return &Dispatcher{logger: d.logger, now: now}
}

// Error writes the response for err. Failures without a classification are
// reported as INTERNAL_ERROR and their detail only reaches the log.
func (d *Dispatcher) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		d.logger.ErrorContext(r.Context(), "UNEXPECTED ERROR",
			slog.String("code", InternalErrorCode),
			slog.String("error", fmt.Sprintf("%+v", err)),
		)
		JSON(w, http.StatusInternalServerError, InternalError(d.now()))
		return
	}

	resp := FromCode(appErr.Code, d.now())
	d.logBySeverity(r.Context(), appErr, resp)
	JSON(w, resp.Status, resp)
}

// Panic writes the response for a recovered panic
func (d *Dispatcher) Panic(w http.ResponseWriter, r *http.Request, recovered any, stack []byte) {
	d.logger.ErrorContext(r.Context(), "UNEXPECTED ERROR",
		slog.String("code", InternalErrorCode),
		slog.String("panic", fmt.Sprintf("%v", recovered)),
		slog.String("stack", string(stack)),
	)
	JSON(w, http.StatusInternalServerError, InternalError(d.now()))
}

func (d *Dispatcher) logBySeverity(ctx context.Context, err *apperr.Error, resp APIErrorResponse) {
	attrs := []any{
		slog.String("code", resp.Code),
		slog.String("message", resp.Message),
		slog.String("type", resp.Type),
		slog.Int("status", resp.Status),
	}

	switch err.Code.Severity {
	case apperr.SeverityInfo:
		d.logger.InfoContext(ctx, "INFO: "+resp.Code, attrs...)
	case apperr.SeverityWarn:
		d.logger.WarnContext(ctx, "WARN: "+resp.Code, attrs...)
	case apperr.SeverityError:
		attrs = append(attrs, slog.String("error", fmt.Sprintf("%+v", err)))
		if err.Err != nil {
			attrs = append(attrs, slog.String("cause", fmt.Sprintf("%+v", err.Err)))
		}
		d.logger.ErrorContext(ctx, "ERROR: "+resp.Code, attrs...)
	default:
		attrs = append(attrs, slog.String("severity", err.Code.Severity.String()))
		d.logger.ErrorContext(ctx, "UNKNOWN SEVERITY: "+resp.Code, attrs...)
	}
}
