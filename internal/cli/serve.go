package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the payment adapter web service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApplication()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return a.Serve(ctx)
}
