package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"audioconv/internal/services"
)

// Exit codes: 1 for runtime failures, 2 when the configuration or
// environment prevents the command from starting.
func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, services.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
