// Package main provides the entry point for the photocarve command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"photocarve/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRoot(os.Stdout, os.Stderr, nil)
	if err := cli.NewRootCmd(root).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
