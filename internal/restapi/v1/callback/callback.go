// Package v1callback receives the asynchronous payment notifications of the bank.
//
// Nothing is looked up or modified before the signature of a notification was verified.
package v1callback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-http-utils/headers"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/media"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/signature"
)

const (
	Path = "/callback"

	maxBodyBytes = 64 * 1024
)

var ProbeMessage = fmt.Sprintf("%s Callback URL", config.DefaultMethodTitle)

type callbackHandler struct {
	interactor   interaction.Interactor
	signatureKey string
}

func Create(router chi.Router, i interaction.Interactor, signatureKey string) {
	handler := &callbackHandler{
		interactor:   i,
		signatureKey: signatureKey,
	}

	router.HandleFunc(Path, handler.handleCallback)
}

func (h *callbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		// reachability probe from the merchant portal
		respond(w, http.StatusOK, ProbeMessage)
		return
	}

	if h.signatureKey == "" {
		logger.Error("payment notification received, but mia.signature_key is not configured")
		respond(w, http.StatusInternalServerError, "")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Error("failed to read callback body: %v", err)
		respond(w, http.StatusInternalServerError, "")
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		logger.Error("Empty callback body")
		respond(w, http.StatusInternalServerError, "")
		return
	}

	payload := miaapi.CallbackPayload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("Invalid callback data: %v, body: %s", err, body)
		respond(w, http.StatusInternalServerError, "")
		return
	}

	fields, err := signature.DecodeResult(payload.Result)
	if err != nil || len(fields) == 0 {
		logger.Error("Invalid callback data: result missing or not an object, body: %s", body)
		respond(w, http.StatusInternalServerError, "")
		return
	}

	valid := signature.Verify(fields, payload.Signature, h.signatureKey)
	logger.Info("Payment notification callback, signature valid: %t", valid)
	if !valid {
		logger.Error("Callback signature validation failed. body: %s", body)
		respondError(w, apierrors.NewSignatureInvalid(""))
		return
	}

	result := miaapi.CallbackResult{}
	if err := json.Unmarshal(payload.Result, &result); err != nil {
		logger.Error("Invalid callback result: %v, body: %s", err, body)
		respond(w, http.StatusInternalServerError, "")
		return
	}

	if !result.IsPaid() {
		logger.Info("ignoring notification for qr %s with status %s", result.QrID, result.QrStatus)
		respond(w, http.StatusAccepted, "")
		return
	}

	orderID := result.OrderID.String()
	order, err := h.interactor.GetOrder(ctx, orderID)
	if err != nil {
		if apierrors.IsOrderNotFound(err) {
			logger.Error("Order not found by Order ID: %s received from %s. body: %s", orderID, config.DefaultMethodTitle, body)
			respond(w, http.StatusUnprocessableEntity, "Order not found")
			return
		}
		logger.Error("failed to load order %s: %v", orderID, err)
		respond(w, http.StatusInternalServerError, "")
		return
	}

	err = h.interactor.ConfirmPayment(ctx, order.OrderID, interaction.PaymentDataFromCallback(result), payload.Result)
	switch {
	case err == nil:
		respond(w, http.StatusOK, "")
	case apierrors.IsAlreadyPaid(err), apierrors.IsDataMismatch(err):
		respondError(w, err)
	default:
		logger.Error("failed to confirm payment %s for order %s: %v", result.PayID, orderID, err)
		respond(w, http.StatusInternalServerError, "")
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := apierrors.AsAPIStatus(err)
	respond(w, status.Status().Code, status.Status().Message)
}

// respond answers with a plain text message, the bank only evaluates the status code.
func respond(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	w.Header().Set(headers.ContentType, media.ContentTypeTextPlain)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
