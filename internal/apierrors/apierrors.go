package apierrors

import (
	"errors"
	"net/http"
)

// Kind classifies failures of the payment lifecycle.
type Kind string

const (
	KindAuth             Kind = "auth_error"
	KindApi              Kind = "api_error"
	KindDataMismatch     Kind = "data_mismatch"
	KindAlreadyPaid      Kind = "already_paid"
	KindSignatureInvalid Kind = "signature_invalid"
	KindOrderNotFound    Kind = "order_not_found"
	KindConfiguration    Kind = "configuration_error"
	KindBadRequest       Kind = "bad_request"
	KindAmbiguousPayment Kind = "ambiguous_payment"
	KindRefundFailed     Kind = "refund_failed"
	KindInitiationFailed Kind = "initiation_failed"
	KindOrderExists      Kind = "order_exists"
)

type Status struct {
	Code    int
	Kind    Kind
	Message string
	Details string
	// raw downstream response body, for diagnostics only. Never send this to a customer.
	Body string
}

type APIStatus interface {
	error
	Status() Status
}

type StatusError struct {
	status Status
}

var _ APIStatus = (*StatusError)(nil)

func (e *StatusError) Error() string {
	if e.status.Details != "" {
		return e.status.Message + ": " + e.status.Details
	}
	return e.status.Message
}

func (e *StatusError) Status() Status {
	return e.status
}

func newStatusError(code int, kind Kind, message string, details string) *StatusError {
	return &StatusError{
		status: Status{
			Code:    code,
			Kind:    kind,
			Message: message,
			Details: details,
		},
	}
}

// NewAuthError is returned when the bank refuses to mint an access token.
func NewAuthError(details string, body []byte) error {
	e := newStatusError(http.StatusBadGateway, KindAuth, "authentication with payment provider failed", details)
	e.status.Body = string(body)
	return e
}

// NewApiError covers transport failures, non-2xx answers, ok=false envelopes and malformed bodies.
func NewApiError(details string, body []byte) error {
	e := newStatusError(http.StatusBadGateway, KindApi, "payment provider request failed", details)
	e.status.Body = string(body)
	return e
}

func NewDataMismatch(details string) error {
	return newStatusError(http.StatusUnprocessableEntity, KindDataMismatch, "Order payment data mismatch", details)
}

func NewAlreadyPaid(details string) error {
	return newStatusError(http.StatusAccepted, KindAlreadyPaid, "Order already fully paid", details)
}

func NewSignatureInvalid(details string) error {
	return newStatusError(http.StatusUnauthorized, KindSignatureInvalid, "Invalid callback signature", details)
}

func NewOrderNotFound(details string) error {
	return newStatusError(http.StatusNotFound, KindOrderNotFound, "Order not found", details)
}

func NewOrderExists(details string) error {
	return newStatusError(http.StatusConflict, KindOrderExists, "Order already registered", details)
}

func NewConfigurationError(details string) error {
	return newStatusError(http.StatusInternalServerError, KindConfiguration, "payment gateway not configured", details)
}

func NewBadRequest(details string) error {
	return newStatusError(http.StatusBadRequest, KindBadRequest, "invalid request", details)
}

func NewAmbiguousPayment(details string) error {
	return newStatusError(http.StatusConflict, KindAmbiguousPayment, "multiple matching payments", details)
}

func NewRefundFailed(details string, body []byte) error {
	e := newStatusError(http.StatusBadGateway, KindRefundFailed, "refund failed", details)
	e.status.Body = string(body)
	return e
}

// NewInitiationFailed carries a message that is safe to show to the customer.
func NewInitiationFailed(message string) error {
	return newStatusError(http.StatusBadGateway, KindInitiationFailed, message, "")
}

func AsAPIStatus(err error) APIStatus {
	var status APIStatus
	if errors.As(err, &status) {
		return status
	}
	return nil
}

func KindOf(err error) Kind {
	if status := AsAPIStatus(err); status != nil {
		return status.Status().Kind
	}
	return ""
}

// RawBody returns the downstream response body attached to err, if any.
func RawBody(err error) string {
	if status := AsAPIStatus(err); status != nil {
		return status.Status().Body
	}
	return ""
}

func IsAuthError(err error) bool {
	return KindOf(err) == KindAuth
}

func IsApiError(err error) bool {
	return KindOf(err) == KindApi
}

func IsDataMismatch(err error) bool {
	return KindOf(err) == KindDataMismatch
}

func IsAlreadyPaid(err error) bool {
	return KindOf(err) == KindAlreadyPaid
}

func IsSignatureInvalid(err error) bool {
	return KindOf(err) == KindSignatureInvalid
}

func IsOrderNotFound(err error) bool {
	return KindOf(err) == KindOrderNotFound
}

func IsConfigurationError(err error) bool {
	return KindOf(err) == KindConfiguration
}

func IsBadRequest(err error) bool {
	return KindOf(err) == KindBadRequest
}

func IsAmbiguousPayment(err error) bool {
	return KindOf(err) == KindAmbiguousPayment
}

func IsRefundFailed(err error) bool {
	return KindOf(err) == KindRefundFailed
}

func IsInitiationFailed(err error) bool {
	return KindOf(err) == KindInitiationFailed
}

func IsOrderExists(err error) bool {
	return KindOf(err) == KindOrderExists
}
