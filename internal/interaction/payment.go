package interaction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
)

func (s *serviceInteractor) InitiatePayment(ctx context.Context, orderID string, mode CheckoutMode) (InitiationResult, error) {
	if err := s.checkConfiguration(); err != nil {
		return InitiationResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return InitiationResult{}, fmt.Errorf("could not lock order %s: %w", orderID, err)
	}
	defer unlock()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return InitiationResult{}, err
	}
	if order.IsPaid() {
		return InitiationResult{}, apierrors.NewAlreadyPaid(fmt.Sprintf("order %s", orderID))
	}

	token, err := s.token(ctx)
	if err != nil {
		return s.initiationFailed(ctx, order, mode, err)
	}

	staleActiveQrID := ""
	if order.HasQr() {
		qrID := order.GetMeta(entities.MetaQrID)
		details, err := s.mia.QrDetails(ctx, token, qrID)
		if err != nil {
			// not fatal, we simply create a new one
			s.logRemoteFailure(ctx, fmt.Sprintf("qr details lookup of %s", qrID), orderID, err)
		} else if s.isReusable(details) {
			s.log(ctx).Info("order %s reusing active qr %s", orderID, qrID)
			return InitiationResult{
				Result:   ResultSuccess,
				Redirect: order.GetMeta(entities.MetaQrURL),
				QrID:     qrID,
				Reused:   true,
			}, nil
		} else if details.IsActive() {
			staleActiveQrID = qrID
		}
	}

	created, err := s.mia.CreateQr(ctx, token, miaapi.CreateQrRequest{
		ExpiresAt:   miaapi.FormatTimestamp(s.now().Add(s.conf.TransactionValidity())),
		Amount:      miaapi.Amount(order.Total),
		Currency:    order.Currency,
		Description: s.conf.DescriptionFor(order.OrderID),
		OrderID:     order.OrderID,
		CallbackURL: s.conf.CallbackURL,
		RedirectURL: s.conf.RedirectURLFor(order.OrderID),
	})
	if err != nil {
		return s.initiationFailed(ctx, order, mode, err)
	}

	if staleActiveQrID != "" {
		s.cancelStaleQr(ctx, token, orderID, staleActiveQrID)
	}

	order.SetMeta(entities.MetaQrID, created.QrID)
	order.SetMeta(entities.MetaQrURL, created.URL)
	if err := s.store.SaveOrder(ctx, *order); err != nil {
		return s.initiationFailed(ctx, order, mode, fmt.Errorf("failed to store qr %s: %w", created.QrID, err))
	}

	message := s.testMessage(fmt.Sprintf("Order #%s payment initiated via %s: %s", order.OrderID, config.DefaultMethodTitle, created.QrID))
	s.log(ctx).Info("%s", message)
	s.addNote(ctx, order.OrderID, message)

	return InitiationResult{
		Result:   ResultSuccess,
		Redirect: created.URL,
		QrID:     created.QrID,
	}, nil
}

// isReusable requires at least half the configured validity to be left, so the customer has time to pay.
func (s *serviceInteractor) isReusable(details miaapi.QrDetails) bool {
	if !details.IsActive() {
		return false
	}

	expiresAt, err := details.ExpiresAtTime()
	if err != nil {
		return false
	}

	remaining := expiresAt.Sub(s.now())
	if remaining <= 0 {
		return false
	}
	return remaining >= s.conf.TransactionValidity()/2
}

func (s *serviceInteractor) cancelStaleQr(ctx context.Context, token string, orderID string, qrID string) {
	_, err := s.mia.CancelQr(ctx, token, qrID, miaapi.CancelQrRequest{
		Reason: fmt.Sprintf("Replaced by a new QR for order #%s", orderID),
	})
	if err != nil {
		s.log(ctx).Warn("failed to cancel replaced qr %s of order %s: %v", qrID, orderID, err)
		return
	}
	s.log(ctx).Info("cancelled replaced qr %s of order %s", qrID, orderID)
}

func (s *serviceInteractor) initiationFailed(ctx context.Context, order *entities.Order, mode CheckoutMode, cause error) (InitiationResult, error) {
	s.logRemoteFailure(ctx, "payment initiation", order.OrderID, cause)

	message := s.testMessage(fmt.Sprintf("Order #%s payment initiation failed via %s.", order.OrderID, config.DefaultMethodTitle))
	s.addNote(ctx, order.OrderID, message)

	if mode == CheckoutModeHeadless {
		return InitiationResult{}, apierrors.NewInitiationFailed(message)
	}

	return InitiationResult{
		Result:   ResultFailure,
		Messages: message,
	}, nil
}

func (s *serviceInteractor) ConfirmPayment(ctx context.Context, orderID string, payment PaymentData, rawReceipt json.RawMessage) error {
	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return fmt.Errorf("could not lock order %s: %w", orderID, err)
	}
	defer unlock()

	// read again under the lock, a concurrent confirm may have completed meanwhile
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if payment.OrderID != order.OrderID {
		s.log(ctx).Error("Order id mismatch: Payment: %s, Order: %s.", payment.OrderID, order.OrderID)
		return apierrors.NewDataMismatch(fmt.Sprintf("payment for order %s does not belong to order %s", payment.OrderID, order.OrderID))
	}

	orderPrice := formatPrice(order.Total, order.Currency)
	paymentPrice := formatPrice(payment.Amount, payment.Currency)
	if orderPrice != paymentPrice {
		s.log(ctx).Error("Order amount mismatch: Payment: %s, Order: %s.", paymentPrice, orderPrice)
		return apierrors.NewDataMismatch(fmt.Sprintf("payment %s does not match order total %s", paymentPrice, orderPrice))
	}

	if order.IsPaid() {
		s.log(ctx).Warn("Order #%s already fully paid.", order.OrderID)
		return apierrors.NewAlreadyPaid(fmt.Sprintf("order %s", order.OrderID))
	}

	// receipt and paid flag go in together, a paid order is never touched again
	alreadyPaid, err := s.store.MarkPaid(ctx, order.OrderID, payment.ReferenceID, map[string]string{
		entities.MetaPayID:          payment.PayID,
		entities.MetaPaymentReceipt: string(rawReceipt),
	})
	if err != nil {
		return err
	}
	if alreadyPaid {
		s.log(ctx).Warn("Order #%s already fully paid.", order.OrderID)
		return apierrors.NewAlreadyPaid(fmt.Sprintf("order %s", order.OrderID))
	}

	message := s.testMessage(fmt.Sprintf("Order #%s payment completed via %s: %s", order.OrderID, config.DefaultMethodTitle, payment.ReferenceID))
	s.log(ctx).Info("%s", message)
	s.addNote(ctx, order.OrderID, message)

	return nil
}

func (s *serviceInteractor) CheckPayment(ctx context.Context, orderID string) (CheckResult, error) {
	if err := s.checkConfiguration(); err != nil {
		return CheckResult{}, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return CheckResult{}, err
	}

	qrID := order.GetMeta(entities.MetaQrID)
	if qrID == "" {
		return CheckResult{}, apierrors.NewBadRequest(fmt.Sprintf("order %s has no %s, payment was never initiated", orderID, entities.MetaQrID))
	}

	result := CheckResult{
		OrderID: order.OrderID,
		QrID:    qrID,
		Paid:    order.IsPaid(),
	}

	token, err := s.token(ctx)
	if err != nil {
		s.logRemoteFailure(ctx, "check payment", orderID, err)
		return result, err
	}

	payments, err := s.mia.PaymentList(ctx, token, miaapi.PaymentListFilter{
		QrID:    qrID,
		OrderID: order.OrderID,
		Status:  miaapi.PaymentStatusExecuted,
	})
	if err != nil {
		s.logRemoteFailure(ctx, "payment list", orderID, err)
		return result, err
	}

	if payments.TotalCount > 1 || len(payments.Items) > 1 {
		// never guess which one to apply
		count := payments.TotalCount
		if len(payments.Items) > count {
			count = len(payments.Items)
		}
		s.log(ctx).Error("Multiple QR %s payments for order %s: %d matches, not confirming", qrID, orderID, count)
		result.Outcome = OutcomeAmbiguous
		return result, apierrors.NewAmbiguousPayment(fmt.Sprintf("%d executed payments for qr %s", count, qrID))
	}

	if len(payments.Items) == 1 {
		payment := payments.Items[0]
		result.Status = payment.Status
		s.log(ctx).Info("%s", s.testMessage(fmt.Sprintf("Order #%s payment %s QR Payment status: %s", orderID, config.DefaultMethodTitle, payment.Status)))

		err := s.ConfirmPayment(ctx, order.OrderID, PaymentDataFromPayment(payment), payment.Raw)
		switch {
		case err == nil:
			result.Outcome = OutcomeConfirmed
			result.Paid = true
			return result, nil
		case apierrors.IsAlreadyPaid(err):
			result.Outcome = OutcomeAlreadyPaid
			result.Paid = true
			return result, nil
		default:
			return result, err
		}
	}

	// no payment yet, the qr status is for display only
	details, err := s.mia.QrDetails(ctx, token, qrID)
	if err != nil {
		s.logRemoteFailure(ctx, "qr details lookup", orderID, err)
		return result, err
	}
	s.log(ctx).Info("%s", s.testMessage(fmt.Sprintf("Order #%s payment %s QR status: %s", orderID, config.DefaultMethodTitle, details.Status)))

	result.Status = details.Status
	result.Outcome = OutcomeNotPaid
	return result, nil
}
