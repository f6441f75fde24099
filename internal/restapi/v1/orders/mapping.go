package v1orders

import (
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
)

func V1OrderFrom(o *entities.Order) Order {
	return Order{
		OrderID:       o.OrderID,
		Total:         o.Total.StringFixed(2),
		Currency:      o.Currency,
		Paid:          o.IsPaid(),
		PaidAt:        o.PaidAt,
		TransactionID: o.TransactionID,
		QrID:          o.GetMeta(entities.MetaQrID),
		QrURL:         o.GetMeta(entities.MetaQrURL),
		PayID:         o.GetMeta(entities.MetaPayID),
	}
}

func V1OrderNotesFrom(orderID string, notes []entities.OrderNote) OrderNotes {
	result := OrderNotes{
		OrderID: orderID,
		Notes:   make([]OrderNote, 0, len(notes)),
	}
	for _, n := range notes {
		result.Notes = append(result.Notes, OrderNote{
			Message:   n.Message,
			RequestID: n.RequestID,
			CreatedAt: n.CreatedAt,
		})
	}
	return result
}

func V1InitiationFrom(r interaction.InitiationResult) Initiation {
	return Initiation{
		Result:   r.Result,
		Redirect: r.Redirect,
		Messages: r.Messages,
		QrID:     r.QrID,
		Reused:   r.Reused,
	}
}

func V1CheckFrom(r interaction.CheckResult) Check {
	return Check{
		OrderID: r.OrderID,
		QrID:    r.QrID,
		Status:  r.Status,
		Paid:    r.Paid,
		Outcome: r.Outcome,
	}
}

func V1RefundFrom(r interaction.RefundOutcome) Refund {
	return Refund{
		OrderID:  r.OrderID,
		RefundID: r.RefundID,
		Status:   r.Status,
		Amount:   r.Amount.StringFixed(2),
		Currency: r.Currency,
	}
}

func V1SimulationFrom(r miaapi.TestPayResult) Simulation {
	return Simulation{
		QrID:        r.QrID,
		QrStatus:    r.QrStatus,
		PayID:       r.PayID,
		ReferenceID: r.ReferenceID,
		Amount:      r.Amount.StringFixed(2),
		Currency:    r.Currency,
	}
}
