package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/grievance/internal/cmd"
	"github.com/felixgeelhaar/grievance/internal/exitcode"
	"github.com/felixgeelhaar/grievance/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			os.Exit(exitcode.Interrupted)
		}

		noColor := os.Getenv("NO_COLOR") != "" || !ux.IsInteractive(os.Stderr)
		ux.RenderError(os.Stderr, err, ux.NewStyles(noColor))
		os.Exit(exitcode.For(err))
	}
}
