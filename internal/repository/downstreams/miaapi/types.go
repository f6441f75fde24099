package miaapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	QrTypeDynamic   = "Dynamic"
	AmountTypeFixed = "Fixed"

	QrStatusActive    = "Active"
	QrStatusInactive  = "Inactive"
	QrStatusExpired   = "Expired"
	QrStatusPaid      = "Paid"
	QrStatusCancelled = "Cancelled"

	PaymentStatusExecuted = "Executed"
	PaymentStatusRefunded = "Refunded"

	RefundStatusCreated  = "Created"
	RefundStatusRefunded = "Refunded"
)

type envelope struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Errors []ErrorItem     `json:"errors"`
}

type ErrorItem struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e ErrorItem) String() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorMessage)
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResult struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
}

// Amount renders as a plain json number with exactly two decimals.
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.Decimal(a)
}

type CreateQrRequest struct {
	Type        string `json:"type"`
	ExpiresAt   string `json:"expiresAt"`
	AmountType  string `json:"amountType"`
	Amount      Amount `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	OrderID     string `json:"orderId"`
	CallbackURL string `json:"callbackUrl"`
	RedirectURL string `json:"redirectUrl"`
}

type CreateQrResult struct {
	QrID      string     `json:"qrId"`
	OrderID   FlexString `json:"orderId"`
	Type      string     `json:"type"`
	URL       string     `json:"url"`
	ExpiresAt string     `json:"expiresAt"`
}

type QrDetails struct {
	QrID        string          `json:"qrId"`
	OrderID     FlexString      `json:"orderId"`
	Status      string          `json:"status"`
	Type        string          `json:"type"`
	URL         string          `json:"url"`
	AmountType  string          `json:"amountType"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	ExpiresAt   string          `json:"expiresAt"`
}

// IsActive compares the status case-insensitively.
func (q QrDetails) IsActive() bool {
	return strings.EqualFold(q.Status, QrStatusActive)
}

func (q QrDetails) ExpiresAtTime() (time.Time, error) {
	return ParseTimestamp(q.ExpiresAt)
}

type PaymentListFilter struct {
	QrID    string
	OrderID string
	Status  string
	Count   int
	Offset  int
}

type PaymentList struct {
	TotalCount int       `json:"totalCount"`
	Items      []Payment `json:"items"`
}

type Payment struct {
	PayID       string          `json:"payId"`
	QrID        string          `json:"qrId"`
	OrderID     FlexString      `json:"orderId"`
	ReferenceID string          `json:"referenceId"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	PayerName   string          `json:"payerName"`
	PayerIban   string          `json:"payerIban"`
	ExecutedAt  string          `json:"executedAt"`

	// Raw is the payment item exactly as received, kept as the payment receipt.
	Raw json.RawMessage `json:"-"`
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	type plain Payment
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Payment(decoded)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type RefundRequest struct {
	Amount      *Amount `json:"amount,omitempty"`
	Reason      string  `json:"reason"`
	CallbackURL string  `json:"callbackUrl,omitempty"`
}

type RefundResult struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// IsSuccessful is true for a completed or an accepted refund.
func (r RefundResult) IsSuccessful() bool {
	return strings.EqualFold(r.Status, RefundStatusRefunded) || strings.EqualFold(r.Status, RefundStatusCreated)
}

type CancelQrRequest struct {
	Reason string `json:"reason"`
}

type CancelQrResult struct {
	QrID   string `json:"qrId"`
	Status string `json:"status"`
}

type TestPayRequest struct {
	QrID      string `json:"qrId"`
	Amount    Amount `json:"amount"`
	Iban      string `json:"iban"`
	Currency  string `json:"currency"`
	PayerName string `json:"payerName"`
}

type TestPayResult struct {
	QrID        string          `json:"qrId"`
	QrStatus    string          `json:"qrStatus"`
	OrderID     FlexString      `json:"orderId"`
	PayID       string          `json:"payId"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	Currency    string          `json:"currency"`
	PayerName   string          `json:"payerName"`
	PayerIban   string          `json:"payerIban"`
	ExecutedAt  string          `json:"executedAt"`
	ReferenceID string          `json:"referenceId"`
}

// CallbackPayload is the body of a payment notification sent by the bank.
type CallbackPayload struct {
	Result    json.RawMessage `json:"result"`
	Signature string          `json:"signature"`
}

// CallbackResult is the typed view of CallbackPayload.Result.
type CallbackResult struct {
	QrID        string          `json:"qrId"`
	ExtensionID string          `json:"extensionId"`
	QrStatus    string          `json:"qrStatus"`
	PayID       string          `json:"payId"`
	ReferenceID string          `json:"referenceId"`
	OrderID     FlexString      `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	Currency    string          `json:"currency"`
	PayerName   string          `json:"payerName"`
	PayerIban   string          `json:"payerIban"`
	ExecutedAt  string          `json:"executedAt"`
}

func (c CallbackResult) IsPaid() bool {
	return strings.EqualFold(c.QrStatus, QrStatusPaid)
}

// FlexString accepts both json strings and json numbers, as order ids arrive in either form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamps returned by the bank. Values without a zone are taken as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp '%s'", value)
}

// FormatTimestamp renders a timestamp the way the bank expects it.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
