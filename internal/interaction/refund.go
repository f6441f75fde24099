package interaction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
)

const (
	sandboxPayerName = "Test Payer"
	sandboxPayerIban = "MD88AG000000011621810140"
)

func (s *serviceInteractor) RefundPayment(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (RefundOutcome, error) {
	if err := s.checkConfiguration(); err != nil {
		return RefundOutcome{}, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return RefundOutcome{}, err
	}

	payID := order.GetMeta(entities.MetaPayID)
	if payID == "" {
		return RefundOutcome{}, apierrors.NewBadRequest(fmt.Sprintf("order %s has no %s, nothing to refund", orderID, entities.MetaPayID))
	}

	full := amount.IsZero() || amount.Equal(order.Total)
	if amount.IsZero() {
		amount = order.Total
	}
	if amount.IsNegative() || amount.GreaterThan(order.Total) {
		return RefundOutcome{}, apierrors.NewBadRequest(fmt.Sprintf("refund amount must be greater than 0 and at most %s", formatPrice(order.Total, order.Currency)))
	}
	if !amount.Equal(amount.Round(2)) {
		return RefundOutcome{}, apierrors.NewBadRequest("refund amount may have at most 2 decimals")
	}

	price := formatPrice(amount, order.Currency)
	outcome := RefundOutcome{
		OrderID:  order.OrderID,
		Amount:   amount,
		Currency: order.Currency,
	}

	token, err := s.token(ctx)
	if err != nil {
		return outcome, s.refundFailed(ctx, order, price, err)
	}

	request := miaapi.RefundRequest{
		Reason:      reason,
		CallbackURL: s.conf.CallbackURL,
	}
	if !full {
		// without an amount the bank refunds the whole payment
		partial := miaapi.Amount(amount)
		request.Amount = &partial
	}

	result, err := s.mia.PaymentRefund(ctx, token, payID, request)
	if err != nil {
		return outcome, s.refundFailed(ctx, order, price, err)
	}
	outcome.RefundID = result.RefundID
	outcome.Status = result.Status

	if !result.IsSuccessful() {
		return outcome, s.refundFailed(ctx, order, price, apierrors.NewRefundFailed(fmt.Sprintf("refund status %s", result.Status), nil))
	}

	message := s.testMessage(fmt.Sprintf("Order #%s refund of %s via %s approved.", order.OrderID, price, config.DefaultMethodTitle))
	s.log(ctx).Info("%s", message)
	s.addNote(ctx, order.OrderID, message)

	return outcome, nil
}

func (s *serviceInteractor) refundFailed(ctx context.Context, order *entities.Order, price string, cause error) error {
	s.logRemoteFailure(ctx, "refund", order.OrderID, cause)

	message := s.testMessage(fmt.Sprintf("Order #%s refund of %s via %s failed.", order.OrderID, price, config.DefaultMethodTitle))
	s.addNote(ctx, order.OrderID, message)

	if apierrors.IsRefundFailed(cause) {
		return cause
	}
	return apierrors.NewRefundFailed(cause.Error(), []byte(apierrors.RawBody(cause)))
}

func (s *serviceInteractor) SimulatePayment(ctx context.Context, orderID string) (miaapi.TestPayResult, error) {
	if !s.conf.Sandbox {
		return miaapi.TestPayResult{}, apierrors.NewBadRequest("payment simulation is only available in sandbox mode")
	}
	if err := s.checkConfiguration(); err != nil {
		return miaapi.TestPayResult{}, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return miaapi.TestPayResult{}, err
	}
	if order.IsPaid() {
		return miaapi.TestPayResult{}, apierrors.NewAlreadyPaid(fmt.Sprintf("order %s", orderID))
	}

	qrID := order.GetMeta(entities.MetaQrID)
	if qrID == "" {
		return miaapi.TestPayResult{}, apierrors.NewBadRequest(fmt.Sprintf("order %s has no %s, initiate the payment first", orderID, entities.MetaQrID))
	}

	token, err := s.token(ctx)
	if err != nil {
		s.logRemoteFailure(ctx, "test payment", orderID, err)
		return miaapi.TestPayResult{}, err
	}

	result, err := s.mia.TestPay(ctx, token, miaapi.TestPayRequest{
		QrID:      qrID,
		Amount:    miaapi.Amount(order.Total),
		Iban:      sandboxPayerIban,
		Currency:  order.Currency,
		PayerName: sandboxPayerName,
	})
	if err != nil {
		s.logRemoteFailure(ctx, "test payment", orderID, err)
		return miaapi.TestPayResult{}, err
	}

	s.log(ctx).Info("simulated payment %s of qr %s for order %s", result.PayID, qrID, orderID)
	return result, nil
}
