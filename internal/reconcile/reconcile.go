// Package reconcile periodically asks the bank about orders that have a QR code but were never
// confirmed, for payments whose notification got lost.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

type Summary struct {
	Checked   int
	Confirmed int
	NotPaid   int
	Ambiguous int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("checked %d orders: %d confirmed, %d not paid, %d ambiguous, %d failed",
		s.Checked, s.Confirmed, s.NotPaid, s.Ambiguous, s.Failed)
}

type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	interactor interaction.Interactor
	logger     logging.Logger

	mu      sync.Mutex
	started bool
}

// New prepares a scheduler for a standard cron expression. An empty schedule disables it.
func New(schedule string, i interaction.Interactor, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NoCtx()
	}

	cronLog := &cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		schedule:   schedule,
		interactor: i,
		logger:     logger,
	}

	if schedule == "" {
		return s, nil
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid reconciliation schedule '%s': %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Enabled() bool {
	return s.schedule != ""
}

func (s *Scheduler) Start() {
	if !s.Enabled() {
		s.logger.Info("scheduled reconciliation disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.logger.Info("starting scheduled reconciliation with schedule '%s'", s.schedule)
	s.cron.Start()
}

// Stop waits for a running reconciliation to finish, or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("reconciliation still running at shutdown")
	}
}

func (s *Scheduler) run() {
	_, _ = s.RunOnce(context.Background())
}

// RunOnce checks every pending order once. Failures of single orders do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	summary := Summary{}

	orders, err := s.interactor.ListPendingOrders(ctx)
	if err != nil {
		s.logger.Error("reconciliation could not list pending orders: %v", err)
		return summary, err
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}

		orderCtx := logging.CreateContextWithLoggerForRequestId(ctx, logging.NewRequestId())
		summary.Checked++

		res, err := s.interactor.CheckPayment(orderCtx, order.OrderID)
		switch {
		case apierrors.IsAmbiguousPayment(err):
			summary.Ambiguous++
		case err != nil:
			logging.LoggerFromContext(orderCtx).Warn("reconciliation of order %s failed: %v", order.OrderID, err)
			summary.Failed++
		case res.Outcome == interaction.OutcomeConfirmed, res.Outcome == interaction.OutcomeAlreadyPaid:
			summary.Confirmed++
		default:
			summary.NotPaid++
		}
	}

	s.logger.Info("reconciliation %s", summary.String())
	return summary, ctx.Err()
}

// cronLogger routes the cron library's own output into our logger.
type cronLogger struct {
	logger logging.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug("cron %s %v", msg, keysAndValues)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error("cron %s %v: %v", msg, keysAndValues, err)
}
