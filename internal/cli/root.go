package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/app"
)

var (
	configPath string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "reg-payment-mia-adapter",
		Short: "maib MIA QR payment adapter",
		Long: `Registers shop orders, creates maib MIA QR codes for them and confirms payments
from bank notifications or by asking the bank.`,
		RunE:          runServe, // default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(checkPaymentCmd)
	rootCmd.AddCommand(reconcileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadApplication() (*app.Application, error) {
	conf, err := app.LoadConfiguration(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(conf)
}
