package middleware

import (
	"net/http"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

// LogRequestIdMiddleware places a logger tagged with the request id into the context.
// It must run after RequestIdMiddleware.
func LogRequestIdMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.CreateContextWithLoggerForRequestId(r.Context(), logging.RequestIdFromContext(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
