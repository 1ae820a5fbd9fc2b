package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/duckmesh/duckask/internal/cli/duckask"
	"github.com/duckmesh/duckask/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := duckask.NewCommand(duckask.Options{}).ExecuteContext(ctx); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		_, _ = errorColor.Fprintf(os.Stderr, "Error: %s\n", observability.Mask(err.Error()))
		stop()
		os.Exit(1)
	}
}
