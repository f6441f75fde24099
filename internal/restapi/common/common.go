package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-http-utils/headers"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/media"
)

func EncodeToJSON(w http.ResponseWriter, obj interface{}, logger logging.Logger) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if obj != nil {
		err := enc.Encode(obj)

		if err != nil {
			logger.Error("Could not encode response. [error]: %v", err)
		}
	}
}

// SendJSON writes obj with the given status.
func SendJSON(w http.ResponseWriter, status int, obj interface{}, logger logging.Logger) {
	w.Header().Set(headers.ContentType, media.ContentTypeApplicationJson)
	w.WriteHeader(status)
	EncodeToJSON(w, obj, logger)
}

func SendUnauthorizedResponse(w http.ResponseWriter, reqID string, logger logging.Logger, details string) {
	SendResponseWithStatusAndMessage(w, http.StatusUnauthorized, reqID, AuthUnauthorizedMessage, logger, details)
}

func SendBadRequestResponse(w http.ResponseWriter, reqID string, logger logging.Logger, details string) {
	SendResponseWithStatusAndMessage(w, http.StatusBadRequest, reqID, RequestParseErrorMessage, logger, details)
}

func SendStatusNotFoundResponse(w http.ResponseWriter, reqID string, logger logging.Logger, details string) {
	SendResponseWithStatusAndMessage(w, http.StatusNotFound, reqID, OrderNotFoundMessage, logger, details)
}

func SendInternalServerError(w http.ResponseWriter, reqID string, logger logging.Logger, details string) {
	SendResponseWithStatusAndMessage(w, http.StatusInternalServerError, reqID, InternalErrorMessage, logger, details)
}

// SendErrorResponse maps err to its status code. Errors without a status are internal errors.
//
// The raw downstream body attached to an error is never sent.
func SendErrorResponse(w http.ResponseWriter, reqID string, logger logging.Logger, err error) {
	status := apierrors.AsAPIStatus(err)
	if status == nil {
		SendInternalServerError(w, reqID, logger, "")
		return
	}

	s := status.Status()
	SendResponseWithStatusAndMessage(w, s.Code, reqID, APIErrorMessage(s.Message), logger, s.Details)
}

func SendResponseWithStatusAndMessage(w http.ResponseWriter, status int, reqID string, message APIErrorMessage, logger logging.Logger, details string) {
	if reqID == "" {
		logger.Debug("request id is empty")
	}

	var detailValues url.Values
	if details != "" {
		logger.Debug("Request was not successful: [error]: %s", details)
		detailValues = url.Values{"details": []string{details}}
	}

	apiErr := NewAPIError(reqID, message, detailValues)
	SendJSON(w, status, apiErr, logger)
}

func GetRequestID(ctx context.Context) string {
	return logging.RequestIdFromContext(ctx)
}
