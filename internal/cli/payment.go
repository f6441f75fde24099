package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

var checkPaymentCmd = &cobra.Command{
	Use:   "check-payment <order_id>",
	Short: "Ask the bank whether an order was paid and confirm it if so",
	Long: `Looks up the QR code of the order at the bank. An executed payment matching the order
total confirms the order, exactly like a payment notification would.

Example:
  reg-payment-mia-adapter check-payment 42 --config config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckPayment,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every unpaid order with a QR code once and exit",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

func runCheckPayment(cmd *cobra.Command, args []string) error {
	a, err := loadApplication()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx = logging.CreateContextWithLoggerForRequestId(ctx, logging.NewRequestId())

	res, err := a.Interactor.CheckPayment(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "order %s: qr %s is %s, %s\n", res.OrderID, res.QrID, res.Status, res.Outcome)
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := loadApplication()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := a.Reconciler.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return nil
}
