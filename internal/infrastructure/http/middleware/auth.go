package middleware

import (
	"net/http"
	"strings"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
)

// RequireAuthorization rejects requests without an Authorization header.
// Only presence is checked; the token is verified upstream.
func RequireAuthorization(dispatcher *response.Dispatcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				dispatcher.Error(w, r, apperr.New(apperr.Unauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
