package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"licensesync/internal/services"
)

// Exit codes let cron wrappers tell a skipped run apart from a broken one.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitRunning     = 3
	exitInterrupted = 130
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, services.ErrRunInProgress):
		return exitRunning
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return exitUsage
	default:
		return exitFailure
	}
}
