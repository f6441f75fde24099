package miaapi

import (
	"context"
)

// MiaApi is the maib MIA QR instant payment API.
//
// All calls except GetToken need a bearer token obtained from GetToken. Every failure,
// including a well-formed answer with ok=false, is returned as an apierrors ApiError
// carrying the raw response body.
type MiaApi interface {
	// GetToken exchanges the client credentials for a short-lived access token.
	//
	// Fails with an AuthError.
	GetToken(ctx context.Context, clientID string, clientSecret string) (string, error)

	// CreateQr creates a dynamic QR code with a fixed amount.
	CreateQr(ctx context.Context, token string, request CreateQrRequest) (CreateQrResult, error)

	// QrDetails retrieves the live state of a QR code.
	QrDetails(ctx context.Context, token string, qrID string) (QrDetails, error)

	// PaymentList lists payments matching the filter.
	PaymentList(ctx context.Context, token string, filter PaymentListFilter) (PaymentList, error)

	// PaymentRefund refunds an executed payment, fully or in part.
	PaymentRefund(ctx context.Context, token string, payID string, request RefundRequest) (RefundResult, error)

	// CancelQr deactivates a QR code so it can no longer be paid.
	CancelQr(ctx context.Context, token string, qrID string, request CancelQrRequest) (CancelQrResult, error)

	// TestPay simulates a payment of a QR code. Only available in the sandbox.
	TestPay(ctx context.Context, token string, request TestPayRequest) (TestPayResult, error)
}
