// Command deskctl edits newsdesk content lists from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"newsdesk/internal/deskcli"
	"newsdesk/internal/middleware"
)

func main() {
	// stdout is for command output.
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	middleware.Logger = middleware.NewLoggerTo(os.Stderr, os.Getenv("APP_ENV"), level)

	if err := deskcli.RootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
