package database

import (
	"context"
	"errors"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
)

var (
	ErrOrderNotFound = errors.New("order not found in database")
	ErrOrderExists   = errors.New("an order with this id already exists")
)

type Repository interface {
	Migrate() error
	OrderCRUD
	OrderNoteCRUD
}

type OrderCRUD interface {
	CreateOrder(ctx context.Context, o entities.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*entities.Order, error)
	// SaveOrder persists the order metadata. It never changes the paid flag.
	SaveOrder(ctx context.Context, o entities.Order) error
	// MarkPaid sets the paid flag and the settlement reference and merges meta into the order
	// metadata, all in one step and only if the order is still unpaid.
	//
	// Returns alreadyPaid=true and leaves the order untouched if another request got there first.
	MarkPaid(ctx context.Context, orderID string, transactionID string, meta map[string]string) (alreadyPaid bool, err error)
	GetUnpaidOrdersWithQr(ctx context.Context) ([]entities.Order, error)
}

type OrderNoteCRUD interface {
	AddOrderNote(ctx context.Context, n entities.OrderNote) error
	GetOrderNotes(ctx context.Context, orderID string) ([]entities.OrderNote, error)
}
