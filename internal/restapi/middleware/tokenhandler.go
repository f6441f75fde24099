package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/common"
)

const TokenHeaderKey = "X-API-TOKEN"

func tokenHandlerMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		headerToken := r.Header.Get(TokenHeaderKey)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(headerToken)) != 1 {
			logger := logging.LoggerFromContext(ctx)
			logger.Warn("invalid token provided for %s %s", r.Method, r.URL.Path)
			common.SendUnauthorizedResponse(w, common.GetRequestID(ctx), logger, "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func TokenHandlerMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return tokenHandlerMiddleware(token, next)
	}
}
