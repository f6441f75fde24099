package downstreams

import (
	"context"
	"strings"
	"time"

	aurestclientapi "github.com/StephanHCB/go-autumn-restclient/api"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

// RequestLoggingImpl writes one line per bank call through the context logger, so it carries the request id.
type RequestLoggingImpl struct {
	Wrapped aurestclientapi.Client
}

func NewRequestLoggingWrapper(wrapped aurestclientapi.Client) aurestclientapi.Client {
	return &RequestLoggingImpl{
		Wrapped: wrapped,
	}
}

func (c *RequestLoggingImpl) Perform(ctx context.Context, method string, requestUrl string, requestBody interface{}, response *aurestclientapi.ParsedResponse) error {
	start := time.Now()
	err := c.Wrapped.Perform(ctx, method, requestUrl, requestBody, response)
	elapsed := time.Since(start).Milliseconds()

	// query parameters carry order ids, the path is enough to tell calls apart
	path, _, _ := strings.Cut(requestUrl, "?")

	logger := logging.LoggerFromContext(ctx)
	if err != nil {
		logger.Warn("mia api %s %s failed after %d ms with status %d: %v", method, path, elapsed, response.Status, err)
		return err
	}
	logger.Info("mia api %s %s answered %d in %d ms", method, path, response.Status, elapsed)
	return nil
}
