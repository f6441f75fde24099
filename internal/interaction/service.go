package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/locking"
)

var _ Interactor = (*serviceInteractor)(nil)

var supportedCurrencies = []string{"MDL"}

type serviceInteractor struct {
	logger logging.Logger
	store  database.Repository
	locker locking.Locker
	mia    miaapi.MiaApi
	conf   config.MiaConfig
	now    func() time.Time
}

func NewServiceInteractor(r database.Repository,
	miaClient miaapi.MiaApi,
	locker locking.Locker,
	conf config.MiaConfig,
	logger logging.Logger,
) (Interactor, error) {

	if r == nil {
		return nil, errors.New("repository must not be nil")
	}

	if miaClient == nil {
		return nil, errors.New("no mia api client provided")
	}

	if locker == nil {
		return nil, errors.New("no order locker provided")
	}

	if logger == nil {
		logger = logging.NoCtx()
	}

	return &serviceInteractor{
		logger: logger,
		store:  r,
		locker: locker,
		mia:    miaClient,
		conf:   conf,
		now:    time.Now,
	}, nil
}

// log prefers the request scoped logger, so log lines carry the request id.
func (s *serviceInteractor) log(ctx context.Context) logging.Logger {
	if logger, ok := ctx.Value(logging.LoggerKey).(logging.Logger); ok {
		return logger
	}
	return s.logger
}

func (s *serviceInteractor) RegisterOrder(ctx context.Context, order entities.Order) (*entities.Order, error) {
	order.OrderID = strings.TrimSpace(order.OrderID)
	order.Currency = strings.ToUpper(strings.TrimSpace(order.Currency))

	if order.OrderID == "" {
		return nil, apierrors.NewBadRequest("order_id must not be empty")
	}
	if !order.Total.IsPositive() {
		return nil, apierrors.NewBadRequest("total must be positive")
	}
	if !order.Total.Equal(order.Total.Round(2)) {
		return nil, apierrors.NewBadRequest("total may have at most 2 decimals")
	}
	if !isSupportedCurrency(order.Currency) {
		return nil, apierrors.NewBadRequest(fmt.Sprintf("currency must be one of %s", strings.Join(supportedCurrencies, ", ")))
	}

	order.Paid = false
	order.PaidAt = nil
	order.TransactionID = ""
	order.Meta = nil

	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, database.ErrOrderExists) {
			return nil, apierrors.NewOrderExists(fmt.Sprintf("order %s", order.OrderID))
		}
		return nil, err
	}

	s.log(ctx).Info("registered order %s over %s", order.OrderID, formatPrice(order.Total, order.Currency))
	return s.store.GetOrderByID(ctx, order.OrderID)
}

func (s *serviceInteractor) GetOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	return s.loadOrder(ctx, orderID)
}

func (s *serviceInteractor) GetOrderNotes(ctx context.Context, orderID string) ([]entities.OrderNote, error) {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.GetOrderNotes(ctx, orderID)
}

func (s *serviceInteractor) ListPendingOrders(ctx context.Context) ([]entities.Order, error) {
	return s.store.GetUnpaidOrdersWithQr(ctx)
}

func (s *serviceInteractor) loadOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return nil, apierrors.NewOrderNotFound(fmt.Sprintf("order %s", orderID))
		}
		return nil, err
	}
	return order, nil
}

// checkConfiguration runs before any remote call.
func (s *serviceInteractor) checkConfiguration() error {
	if !s.conf.HasCredentials() {
		return apierrors.NewConfigurationError("mia client_id, client_secret and signature_key must be configured")
	}
	return nil
}

func (s *serviceInteractor) token(ctx context.Context) (string, error) {
	return s.mia.GetToken(ctx, s.conf.ClientID, s.conf.ClientSecret)
}

// addNote never fails the operation, the audit trail is best effort.
func (s *serviceInteractor) addNote(ctx context.Context, orderID string, message string) {
	note := entities.OrderNote{
		OrderID:   orderID,
		Message:   message,
		RequestID: logging.RequestIdFromContext(ctx),
		CreatedAt: s.now(),
	}
	if err := s.store.AddOrderNote(ctx, note); err != nil {
		s.log(ctx).Error("failed to add note to order %s: %v", orderID, err)
	}
}

func (s *serviceInteractor) testMessage(message string) string {
	if s.conf.Sandbox {
		return "TEST: " + message
	}
	return message
}

// logRemoteFailure logs the raw response body, which must never reach the customer.
func (s *serviceInteractor) logRemoteFailure(ctx context.Context, what string, orderID string, err error) {
	if body := apierrors.RawBody(err); body != "" {
		s.log(ctx).Error("%s for order %s failed: %v, response body: %s", what, orderID, err, body)
		return
	}
	s.log(ctx).Error("%s for order %s failed: %v", what, orderID, err)
}

// formatPrice rounds to 2 decimals, the way both sides of a price comparison must be rendered.
func formatPrice(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(2), strings.ToUpper(strings.TrimSpace(currency)))
}

func isSupportedCurrency(currency string) bool {
	for _, c := range supportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}
