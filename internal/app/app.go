// Package app wires the registry and node agent processes.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/version"
)

// serve runs the HTTP server until a signal arrives or the server fails,
// then shuts it down within timeout. Background work is started by start
// with the signal context and stopped by stop before the server goes away.
func serve(
	log logger.Logger,
	server *httpserver.Server,
	timeout time.Duration,
	start func(ctx context.Context),
	stop func(),
) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		cancel()
	}

	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}
	_ = log.Sync()
	return runErr
}

func logBuild(log logger.Logger, role, addr string) {
	log.Infof("🚀 Starting switchyard %s v%s on %s", role, version.Version, addr)
	log.Infof("switchyard %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)
}
