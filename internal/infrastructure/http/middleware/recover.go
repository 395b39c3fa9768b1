package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR response. The panic
// value and stack only reach the log.
func Recoverer(dispatcher *response.Dispatcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						// net/http aborts the response without logging a stack
						panic(rvr)
					}
					dispatcher.Panic(w, r, rvr, debug.Stack())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
