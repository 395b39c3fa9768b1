package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestDispatcher() (*Dispatcher, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewDispatcher(logger).WithClock(func() time.Time { return fixedNow }), buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestError_ClassifiedStatusMatchesCode(t *testing.T) {
	for _, code := range apperr.Codes() {
		t.Run(code.Key, func(t *testing.T) {
			d, _ := newTestDispatcher()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			d.Error(rec, req, apperr.New(code))

			assert.Equal(t, code.Status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body APIErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, code.Key, body.Code)
			assert.Equal(t, code.Label, body.Message)
			assert.Equal(t, string(code.Type), body.Type)
			assert.Equal(t, code.Status, body.Status)
			assert.True(t, fixedNow.Equal(body.Timestamp))
		})
	}
}

func TestError_OneRecordPerFailureAtCodeSeverity(t *testing.T) {
	tests := []struct {
		code      apperr.Code
		level     string
		withCause bool
	}{
		{apperr.InvalidInputData, "WARN", false},
		{apperr.Unauthorized, "WARN", false},
		{apperr.DatabaseError, "ERROR", true},
		{apperr.ServiceUnavailable, "ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.code.Key, func(t *testing.T) {
			d, buf := newTestDispatcher()
			cause := errors.New("socket closed by peer")

			d.Error(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), apperr.Wrap(tt.code, cause))

			lines := logLines(t, buf)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.level, lines[0]["level"])
			assert.Equal(t, tt.code.Key, lines[0]["code"])
			if tt.withCause {
				assert.Contains(t, lines[0]["cause"], "socket closed by peer")
			} else {
				assert.NotContains(t, lines[0], "cause")
				assert.NotContains(t, lines[0], "error")
			}
		})
	}
}

func TestError_InfoSeverity(t *testing.T) {
	d, buf := newTestDispatcher()
	notice := apperr.Code{Key: "SB_PL_NOTICE", Label: "Notice.", Status: http.StatusOK, Type: apperr.TypeBusiness, Severity: apperr.SeverityInfo}

	d.Error(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), apperr.New(notice))

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
}

func TestError_UnclassifiedHidesDetail(t *testing.T) {
	d, buf := newTestDispatcher()
	rec := httptest.NewRecorder()

	d.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("mongo: %w", errors.New("secret internal detail")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internal detail")

	var body APIErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, InternalErrorCode, body.Code)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.Equal(t, "TECHNICAL", body.Type)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Contains(t, lines[0]["error"], "secret internal detail")
}

func TestPanic_LogsStackAndHidesIt(t *testing.T) {
	d, buf := newTestDispatcher()
	rec := httptest.NewRecorder()

	d.Panic(rec, httptest.NewRequest(http.MethodGet, "/", nil), "nil map write", []byte("goroutine 1 [running]:\nmain.main()"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "goroutine")
	assert.NotContains(t, rec.Body.String(), "nil map write")

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0]["stack"], "goroutine 1")
}
