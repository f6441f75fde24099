package v1orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// request and response types
type (
	// RegisterOrderRequest makes an order of the shop known to the payment adapter.
	// total accepts a json number or a string.
	RegisterOrderRequest struct {
		OrderID  string          `json:"order_id"`
		Total    decimal.Decimal `json:"total"`
		Currency string          `json:"currency"`
	}

	// OrderRequest addresses an existing order by the {order_id} path parameter
	OrderRequest struct {
		OrderID string
	}

	InitiatePaymentRequest struct {
		OrderID  string
		Headless bool
	}

	// RefundRequest refunds amount, or the full order total if amount is missing or zero
	RefundRequest struct {
		OrderID string          `json:"-"`
		Amount  decimal.Decimal `json:"amount"`
		Reason  string          `json:"reason"`
	}
)

type Order struct {
	OrderID       string     `json:"order_id"`
	Total         string     `json:"total"`
	Currency      string     `json:"currency"`
	Paid          bool       `json:"paid"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	QrID          string     `json:"qr_id,omitempty"`
	QrURL         string     `json:"qr_url,omitempty"`
	PayID         string     `json:"pay_id,omitempty"`
}

type OrderNote struct {
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderNotes struct {
	OrderID string      `json:"order_id"`
	Notes   []OrderNote `json:"notes"`
}

type Initiation struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Messages string `json:"messages,omitempty"`
	QrID     string `json:"qr_id,omitempty"`
	Reused   bool   `json:"reused"`
}

type Check struct {
	OrderID string `json:"order_id"`
	QrID    string `json:"qr_id"`
	Status  string `json:"status"`
	Paid    bool   `json:"paid"`
	Outcome string `json:"outcome"`
}

type Refund struct {
	OrderID  string `json:"order_id"`
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Simulation struct {
	QrID        string `json:"qr_id"`
	QrStatus    string `json:"qr_status"`
	PayID       string `json:"pay_id"`
	ReferenceID string `json:"reference_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}
