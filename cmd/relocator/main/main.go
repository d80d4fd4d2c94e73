package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/arthur-debert/relocator/cmd/relocator"
	"github.com/arthur-debert/relocator/pkg/ui"
)

func main() {
	// Ctrl-C cancels the running operation. Completed steps stay in the
	// ledger and can be undone with rollback.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := relocator.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ui.IsTerminal(os.Stderr) {
			fmt.Fprintln(os.Stderr, ui.ErrorBanner(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
