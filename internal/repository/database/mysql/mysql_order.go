package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database"
)

func (m *mysqlConnector) CreateOrder(ctx context.Context, o entities.Order) error {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	var exists int64
	res := m.db.WithContext(tCtx).Model(&entities.Order{}).
		Where(&entities.Order{OrderID: o.OrderID}).
		Count(&exists)
	if res.Error != nil {
		return res.Error
	}
	if exists > 0 {
		return database.ErrOrderExists
	}

	return m.db.WithContext(tCtx).Create(&o).Error
}

func (m *mysqlConnector) GetOrderByID(ctx context.Context, orderID string) (*entities.Order, error) {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	var o entities.Order
	res := m.db.WithContext(tCtx).Where(&entities.Order{OrderID: orderID}).First(&o)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, database.ErrOrderNotFound
		}
		return nil, res.Error
	}

	return &o, nil
}

func (m *mysqlConnector) SaveOrder(ctx context.Context, o entities.Order) error {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	res := m.db.WithContext(tCtx).
		Model(&entities.Order{}).
		Where(&entities.Order{OrderID: o.OrderID}).
		Select("Meta").
		Updates(&entities.Order{Meta: o.Meta})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func (m *mysqlConnector) MarkPaid(ctx context.Context, orderID string, transactionID string, meta map[string]string) (bool, error) {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	alreadyPaid := false
	err := m.db.WithContext(tCtx).Transaction(func(tx *gorm.DB) error {
		var cur entities.Order
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&entities.Order{OrderID: orderID}).
			First(&cur)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return database.ErrOrderNotFound
			}
			return res.Error
		}
		if cur.Paid {
			alreadyPaid = true
			return nil
		}

		for k, v := range meta {
			cur.SetMeta(k, v)
		}
		now := time.Now().UTC()

		res = tx.Model(&cur).
			Where("paid = ?", false).
			Select("Paid", "PaidAt", "TransactionID", "Meta").
			Updates(&entities.Order{
				Paid:          true,
				PaidAt:        &now,
				TransactionID: transactionID,
				Meta:          cur.Meta,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			alreadyPaid = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return alreadyPaid, nil
}

func (m *mysqlConnector) GetUnpaidOrdersWithQr(ctx context.Context) ([]entities.Order, error) {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	var candidates []entities.Order
	res := m.db.WithContext(tCtx).
		Where("paid = ?", false).
		Order("id").
		Find(&candidates)
	if res.Error != nil {
		return nil, res.Error
	}

	// metadata is a json column, filtering it in go keeps the query portable
	result := make([]entities.Order, 0, len(candidates))
	for _, o := range candidates {
		if o.GetMeta(entities.MetaQrID) != "" {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mysqlConnector) AddOrderNote(ctx context.Context, n entities.OrderNote) error {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	return m.db.WithContext(tCtx).Create(&n).Error
}

func (m *mysqlConnector) GetOrderNotes(ctx context.Context, orderID string) ([]entities.OrderNote, error) {
	tCtx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	var notes []entities.OrderNote
	res := m.db.WithContext(tCtx).
		Where(&entities.OrderNote{OrderID: orderID}).
		Order("id").
		Find(&notes)
	if res.Error != nil {
		return nil, res.Error
	}

	return notes, nil
}
