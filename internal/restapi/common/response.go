package common

import (
	"context"
	"net/http"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

// Response is the generic type for all responses.
type Response[T any] struct {
	Payload *T `json:"payload"`
}

// NewResponse creates a new response with the provided payload type.
func NewResponse[T any](payload *T) *Response[T] {
	return &Response[T]{
		Payload: payload,
	}
}

// JSONResponseHandler sends the endpoint result wrapped in a Response with the given status.
func JSONResponseHandler[T any](status int) ResponseHandler[T] {
	return func(ctx context.Context, res *T, w http.ResponseWriter) error {
		SendJSON(w, status, NewResponse(res), logging.LoggerFromContext(ctx))
		return nil
	}
}
