package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/app"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	conf, err := app.LoadConfiguration(configPath)
	if err != nil {
		return err
	}

	if _, err := app.OpenRepository(conf, logging.NoCtx()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
	return nil
}
