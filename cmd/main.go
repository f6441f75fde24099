package main

import (
	"os"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
