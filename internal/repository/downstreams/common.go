package downstreams

import (
	"context"
	"net/http"
	"time"

	aurestbreaker "github.com/StephanHCB/go-autumn-restclient-circuitbreaker/implementation/breaker"
	aurestclientapi "github.com/StephanHCB/go-autumn-restclient/api"
	auresthttpclient "github.com/StephanHCB/go-autumn-restclient/implementation/httpclient"
	aurestlogging "github.com/StephanHCB/go-autumn-restclient/implementation/requestlogging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-http-utils/headers"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

// context key with a separate type, so no other package has a chance of accessing it
type ctxKeyBearerToken struct{}

// WithBearerToken places an access token into the context, to be picked up by BearerTokenRequestManipulator.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyBearerToken{}, token)
}

// PlainRequestManipulator only forwards the request id.
func PlainRequestManipulator() aurestclientapi.RequestManipulatorCallback {
	return func(ctx context.Context, r *http.Request) {
		r.Header.Add(middleware.RequestIDHeader, logging.RequestIdFromContext(ctx))
	}
}

// BearerTokenRequestManipulator forwards the access token placed in the context by WithBearerToken.
func BearerTokenRequestManipulator() aurestclientapi.RequestManipulatorCallback {
	return func(ctx context.Context, r *http.Request) {
		token, ok := ctx.Value(ctxKeyBearerToken{}).(string)
		if ok && token != "" {
			r.Header.Add(headers.Authorization, "Bearer "+token)
		}
		r.Header.Add(middleware.RequestIDHeader, logging.RequestIdFromContext(ctx))
	}
}

type ClientOptions struct {
	CircuitBreakerName string
	Timeout            time.Duration
	// DebugLogging adds full request/response logging via go-autumn-logging.
	DebugLogging bool
}

func ClientWith(requestManipulator aurestclientapi.RequestManipulatorCallback, opts ClientOptions) (aurestclientapi.Client, error) {
	httpClient, err := auresthttpclient.New(opts.Timeout, nil, requestManipulator)
	if err != nil {
		return nil, err
	}

	var client aurestclientapi.Client = httpClient
	if opts.DebugLogging {
		client = aurestlogging.New(client)
	}

	requestLoggingClient := NewRequestLoggingWrapper(client)

	circuitBreakerClient := aurestbreaker.New(requestLoggingClient,
		opts.CircuitBreakerName,
		10,
		2*time.Minute,
		30*time.Second,
		opts.Timeout,
	)

	return circuitBreakerClient, nil
}
