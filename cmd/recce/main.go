package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ghostshell/app/recce"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := recce.Run(ctx, os.Args[1:])
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, recce.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	case recce.IsResolutionError(err):
		fmt.Fprintf(os.Stderr, "Error: %v\nCheck the host name and your DNS settings.\n", err)
		os.Exit(3)
	case recce.IsParseError(err):
		fmt.Fprintf(os.Stderr, "Error: %v\nPorts are single numbers or low-high ranges separated by single spaces.\n", err)
		os.Exit(4)
	case recce.GetErrorCode(err) == recce.ErrCodeConfiguration:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(5)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
