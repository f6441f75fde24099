package interaction

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
)

// CheckoutMode selects how initiation failures are reported.
type CheckoutMode int

const (
	// CheckoutModeRedirect reports failures as a failure result with a customer-safe message.
	CheckoutModeRedirect CheckoutMode = iota
	// CheckoutModeHeadless reports failures as an error, for callers that propagate errors themselves.
	CheckoutModeHeadless
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

const (
	OutcomeConfirmed   = "confirmed"
	OutcomeAlreadyPaid = "already_paid"
	OutcomeNotPaid     = "not_paid"
	OutcomeAmbiguous   = "ambiguous"
)

type InitiationResult struct {
	Result   string
	Redirect string
	Messages string
	QrID     string
	Reused   bool
}

// PaymentData is what the bank reports about an executed payment.
type PaymentData struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	PayID       string
	ReferenceID string
}

func PaymentDataFromCallback(c miaapi.CallbackResult) PaymentData {
	return PaymentData{
		OrderID:     c.OrderID.String(),
		Amount:      c.Amount,
		Currency:    c.Currency,
		PayID:       c.PayID,
		ReferenceID: c.ReferenceID,
	}
}

func PaymentDataFromPayment(p miaapi.Payment) PaymentData {
	return PaymentData{
		OrderID:     p.OrderID.String(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		PayID:       p.PayID,
		ReferenceID: p.ReferenceID,
	}
}

type CheckResult struct {
	OrderID string
	QrID    string
	// Status is the payment status if a payment was found, else the QR status.
	Status  string
	Paid    bool
	Outcome string
}

type RefundOutcome struct {
	OrderID  string
	RefundID string
	Status   string
	Amount   decimal.Decimal
	Currency string
}

type Interactor interface {
	// RegisterOrder makes an order known to the payment adapter.
	RegisterOrder(ctx context.Context, order entities.Order) (*entities.Order, error)
	GetOrder(ctx context.Context, orderID string) (*entities.Order, error)
	GetOrderNotes(ctx context.Context, orderID string) ([]entities.OrderNote, error)

	// InitiatePayment reuses a still fresh QR code or creates a new one, and returns where to send the customer.
	InitiatePayment(ctx context.Context, orderID string, mode CheckoutMode) (InitiationResult, error)

	// ConfirmPayment is the single transition of an order into paid.
	//
	// Returns a DataMismatch error if the payment does not match the order, and an AlreadyPaid
	// error if the order was paid before. The latter is not a failure.
	ConfirmPayment(ctx context.Context, orderID string, payment PaymentData, rawReceipt json.RawMessage) error

	// CheckPayment asks the bank for the payment of an order and confirms it if exactly one is found.
	CheckPayment(ctx context.Context, orderID string) (CheckResult, error)

	// RefundPayment refunds amount, or the full order total if amount is zero.
	RefundPayment(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (RefundOutcome, error)

	// SimulatePayment pays the current QR code of an order. Sandbox only.
	SimulatePayment(ctx context.Context, orderID string) (miaapi.TestPayResult, error)

	// ListPendingOrders lists unpaid orders that have a QR code, the candidates for reconciliation.
	ListPendingOrders(ctx context.Context) ([]entities.Order, error)
}
