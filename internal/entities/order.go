package entities

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// metadata keys written by the payment lifecycle
const (
	MetaQrID           = "qr_id"
	MetaQrURL          = "qr_url"
	MetaPayID          = "pay_id"
	MetaPaymentReceipt = "payment_receipt"
)

// Order is the shop order a QR payment is collected for.
//
// The payment adapter does not own orders. It only reads the total, and writes the
// payment metadata and the paid flag.
type Order struct {
	gorm.Model
	OrderID       string            `gorm:"uniqueIndex:idx_uq_order_id;type:varchar(80) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;NOT NULL"`
	Total         decimal.Decimal   `gorm:"type:decimal(12,2);NOT NULL"`
	Currency      string            `gorm:"type:varchar(3) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;NOT NULL"`
	Paid          bool              `gorm:"index;NOT NULL;default:false"`
	PaidAt        *time.Time        `gorm:"default:NULL"`
	TransactionID string            `gorm:"type:varchar(80) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci"`
	Meta          map[string]string `gorm:"serializer:json;type:text"`
}

func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

func (o *Order) SetMeta(key string, value string) {
	if o.Meta == nil {
		o.Meta = make(map[string]string)
	}
	o.Meta[key] = value
}

func (o *Order) IsPaid() bool {
	return o.Paid
}

// HasQr is true once a QR payment request was stored for the order.
func (o *Order) HasQr() bool {
	return o.GetMeta(MetaQrID) != "" && o.GetMeta(MetaQrURL) != ""
}

// Clone returns a deep copy, so stores can hand out orders without sharing the metadata map.
func (o Order) Clone() Order {
	if o.Meta != nil {
		meta := make(map[string]string, len(o.Meta))
		for k, v := range o.Meta {
			meta[k] = v
		}
		o.Meta = meta
	}
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		o.PaidAt = &paidAt
	}
	return o
}

// OrderNote is an audit trail entry attached to an order.
//
// This table is append only
type OrderNote struct {
	ID        uint      `gorm:"primarykey"`
	OrderID   string    `gorm:"index;type:varchar(80) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;NOT NULL"`
	Message   string    `gorm:"type:text CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci"`
	RequestID string    `gorm:"type:varchar(8) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci"`
	CreatedAt time.Time
}
