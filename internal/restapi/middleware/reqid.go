package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

// RequestIDHeader is read from the shop backend and echoed back, so both sides can correlate logs.
const RequestIDHeader = "X-Request-Id"

var ValidRequestIdRegex = regexp.MustCompile("^[0-9a-f]{8}$")

// RequestIdMiddleware keeps a well-formed incoming request id and replaces anything else.
func RequestIdMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if !ValidRequestIdRegex.MatchString(reqID) {
				reqID = logging.NewRequestId()
			}

			w.Header().Set(RequestIDHeader, reqID)
			ctx := context.WithValue(r.Context(), logging.RequestIdKey, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
