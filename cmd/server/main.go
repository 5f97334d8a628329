// Command server runs the Socially HTTP and WebSocket API.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socially/internal/bootstrap"
	"socially/internal/config"
	"socially/internal/middleware"
	"socially/internal/server"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A local .env is optional; real deployments use the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring unreadable .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		middleware.Logger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			middleware.Logger.Error("Server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("Server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := rt.StopTracing(shutdownCtx); err != nil {
		middleware.Logger.Error("Tracing shutdown error", slog.String("error", err.Error()))
	}
}
