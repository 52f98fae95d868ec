package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upack.dev/cli/internal/interfaces/cli"
	"upack.dev/cli/internal/interfaces/di"
)

// shutdownTimeout bounds how long exiting waits for killed jobs to report
const shutdownTimeout = 10 * time.Second

func main() {
	container := di.NewContainer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		container.Logger.Info("Received shutdown signal, stopping build jobs...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := container.Shutdown(shutdownCtx); err != nil {
			container.Logger.WithError(err).Warn("error during shutdown")
		}
		os.Exit(130)
	}()

	code := cli.Execute(ctx, container.GetCLIContainer())

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := container.Shutdown(shutdownCtx); err != nil {
		container.Logger.WithError(err).Warn("error during shutdown")
	}

	done()
	cancel()
	os.Exit(code)
}
