// PolySock - a socket-multiplexing bridge with built-in traffic tracing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"polysock/cmd"
	perrors "polysock/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "polysock: %v\n", err)
		os.Exit(perrors.ExitCode(err))
	}
}
