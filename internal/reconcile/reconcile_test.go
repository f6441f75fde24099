package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

type checkOutcome struct {
	outcome string
	err     error
}

type InteractorMock struct {
	interaction.Interactor

	mu       sync.Mutex
	pending  []entities.Order
	listErr  error
	outcomes map[string]checkOutcome
	checked  []string
}

func (m *InteractorMock) ListPendingOrders(ctx context.Context) ([]entities.Order, error) {
	return m.pending, m.listErr
}

func (m *InteractorMock) CheckPayment(ctx context.Context, orderID string) (interaction.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, orderID)
	o := m.outcomes[orderID]
	return interaction.CheckResult{OrderID: orderID, Outcome: o.outcome}, o.err
}

func pending(ids ...string) []entities.Order {
	result := make([]entities.Order, 0, len(ids))
	for _, id := range ids {
		result = append(result, entities.Order{OrderID: id, Total: decimal.RequireFromString("1"), Currency: "MDL"})
	}
	return result
}

func TestRunOnce(t *testing.T) {
	mock := &InteractorMock{
		pending: pending("1", "2", "3", "4", "5"),
		outcomes: map[string]checkOutcome{
			"1": {outcome: interaction.OutcomeConfirmed},
			"2": {outcome: interaction.OutcomeNotPaid},
			"3": {outcome: interaction.OutcomeAmbiguous, err: apierrors.NewAmbiguousPayment("2 executed payments")},
			"4": {err: apierrors.NewApiError("timeout", nil)},
			"5": {outcome: interaction.OutcomeAlreadyPaid},
		},
	}

	s, err := New("", mock, logging.NewNoopLogger())
	require.NoError(t, err)

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Checked: 5, Confirmed: 2, NotPaid: 1, Ambiguous: 1, Failed: 1}, summary)
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, mock.checked)
}

func TestRunOnceListFails(t *testing.T) {
	mock := &InteractorMock{listErr: errors.New("database down")}

	s, err := New("", mock, logging.NewNoopLogger())
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.EqualError(t, err, "database down")
	require.Empty(t, mock.checked)
}

func TestRunOnceCancelled(t *testing.T) {
	mock := &InteractorMock{pending: pending("1", "2")}

	s, err := New("", mock, logging.NewNoopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, summary.Checked)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		schedule      string
		expectErr     bool
		expectEnabled bool
	}{
		{
			name:     "Should be disabled without schedule",
			schedule: "",
		},
		{
			name:          "Should accept a standard cron expression",
			schedule:      "*/5 * * * *",
			expectEnabled: true,
		},
		{
			name:          "Should accept a descriptor",
			schedule:      "@every 10m",
			expectEnabled: true,
		},
		{
			name:      "Should reject garbage",
			schedule:  "every tuesday",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.schedule, &InteractorMock{}, logging.NewNoopLogger())
			if tt.expectErr {
				require.Error(t, err)
				require.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectEnabled, s.Enabled())

			s.Start()
			s.Stop(context.Background())
		})
	}
}
