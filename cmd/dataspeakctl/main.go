package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dataspeak/dataspeak/internal/cli/dataspeakctl"
)

func main() {
	options, err := dataspeakctl.OptionsFromEnv(os.LookupEnv)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	options.Stdout = os.Stdout
	options.Stderr = os.Stderr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := dataspeakctl.Run(ctx, os.Args[1:], options)
	stop()
	os.Exit(code)
}
