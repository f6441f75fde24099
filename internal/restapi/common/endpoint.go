package common

import (
	"context"
	"net/http"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

type RequestHandler[Req any] func(r *http.Request) (*Req, error)
type ResponseHandler[Res any] func(ctx context.Context, res *Res, w http.ResponseWriter) error
type Endpoint[Req, Res any] func(ctx context.Context, request *Req, logger logging.Logger) (*Res, error)

// CreateHandler chains request parsing, the endpoint and response writing.
//
// Parse failures answer 400, endpoint errors are mapped by their kind.
func CreateHandler[Req, Res any](endpoint Endpoint[Req, Res],
	requestHandler RequestHandler[Req],
	responseHandler ResponseHandler[Res]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := GetRequestID(ctx)
		logger := logging.WithRequestID(ctx, reqID)

		defer func() {
			if err := r.Body.Close(); err != nil {
				logger.Warn("closing body of %s %s failed: %v", r.Method, r.URL.Path, err)
			}
		}()

		if requestHandler == nil || responseHandler == nil {
			logger.Error("%s %s has no request or response handler", r.Method, r.URL.Path)
			SendInternalServerError(w, reqID, logger, "")
			return
		}

		request, err := requestHandler(r)
		if err != nil {
			logger.Warn("%s %s rejected: %v", r.Method, r.URL.Path, err)
			SendBadRequestResponse(w, reqID, logger, err.Error())
			return
		}

		response, err := endpoint(ctx, request, logger)
		if err != nil {
			logEndpointError(logger, r, err)
			SendErrorResponse(w, reqID, logger, err)
			return
		}

		if err := responseHandler(ctx, response, w); err != nil {
			logger.Error("%s %s failed writing the response: %v", r.Method, r.URL.Path, err)
			SendInternalServerError(w, reqID, logger, "")
		}
	}
}

// logEndpointError keeps benign outcomes like an already paid order and client mistakes out of the error log.
func logEndpointError(logger logging.Logger, r *http.Request, err error) {
	code := http.StatusInternalServerError
	if status := apierrors.AsAPIStatus(err); status != nil {
		code = status.Status().Code
	}

	switch {
	case code < http.StatusBadRequest:
		logger.Info("%s %s: %v", r.Method, r.URL.Path, err)
	case code < http.StatusInternalServerError:
		logger.Warn("%s %s: %v", r.Method, r.URL.Path, err)
	default:
		logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
}
