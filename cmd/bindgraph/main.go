package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/bindgraph/internal/cli"
)

// Exit codes.
const (
	exitError       = 1
	exitDiagnostics = 2
	exitInterrupted = 130 // Standard shell convention for SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(exitInterrupted)
	case cli.IsDiagnostics(err):
		// Diagnostics are already printed.
		os.Exit(exitDiagnostics)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}
