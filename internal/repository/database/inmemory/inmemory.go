package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database"
)

var _ database.Repository = (*inmemoryProvider)(nil)

type inmemoryProvider struct {
	mu         sync.RWMutex
	orders     map[string]entities.Order
	notes      []entities.OrderNote
	idSequence uint
}

func NewInMemoryProvider() database.Repository {
	return &inmemoryProvider{
		orders: make(map[string]entities.Order),
		notes:  make([]entities.OrderNote, 0),
	}
}

func (m *inmemoryProvider) Migrate() error {
	// Nothing to do here
	return nil
}

func (m *inmemoryProvider) CreateOrder(ctx context.Context, o entities.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[o.OrderID]; exists {
		return database.ErrOrderExists
	}

	m.idSequence++
	o.ID = m.idSequence
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = o.CreatedAt

	m.orders[o.OrderID] = o.Clone()
	return nil
}

func (m *inmemoryProvider) GetOrderByID(ctx context.Context, orderID string) (*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	copied := o.Clone()
	return &copied, nil
}

func (m *inmemoryProvider) SaveOrder(ctx context.Context, o entities.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.orders[o.OrderID]
	if !ok {
		return database.ErrOrderNotFound
	}

	saved := o.Clone()
	cur.Meta = saved.Meta
	cur.UpdatedAt = time.Now()
	m.orders[o.OrderID] = cur
	return nil
}

func (m *inmemoryProvider) MarkPaid(ctx context.Context, orderID string, transactionID string, meta map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.orders[orderID]
	if !ok {
		return false, database.ErrOrderNotFound
	}
	if cur.Paid {
		return true, nil
	}

	cur = cur.Clone()
	for k, v := range meta {
		cur.SetMeta(k, v)
	}

	now := time.Now()
	cur.Paid = true
	cur.PaidAt = &now
	cur.TransactionID = transactionID
	cur.UpdatedAt = now
	m.orders[orderID] = cur
	return false, nil
}

func (m *inmemoryProvider) GetUnpaidOrdersWithQr(ctx context.Context) ([]entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Order, 0)
	for _, o := range m.orders {
		if !o.Paid && o.GetMeta(entities.MetaQrID) != "" {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *inmemoryProvider) AddOrderNote(ctx context.Context, n entities.OrderNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = uint(len(m.notes) + 1)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notes = append(m.notes, n)
	return nil
}

func (m *inmemoryProvider) GetOrderNotes(ctx context.Context, orderID string) ([]entities.OrderNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.OrderNote, 0)
	for _, n := range m.notes {
		if n.OrderID == orderID {
			result = append(result, n)
		}
	}
	return result, nil
}
