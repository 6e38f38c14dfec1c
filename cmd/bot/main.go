package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmoreira/transferwire/internal/app"
	"github.com/dmoreira/transferwire/internal/config"
	"github.com/dmoreira/transferwire/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Invalid configuration must halt before the first cycle.
		var confErr *config.ConfigError
		if errors.As(err, &confErr) {
			fmt.Fprintln(os.Stderr, confErr.Error())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		application.Logger.Info("Shutting down...")
		cancel()
	}()

	if err := application.Run(ctx); err != nil && err != context.Canceled {
		application.Logger.Error("Run error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("Shutdown error", logging.WithField("error", err.Error()))
	}
}
