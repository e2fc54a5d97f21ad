// Soil advisor stand-in service for local development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/soil-advisor/internal/config"
	"github.com/ashureev/soil-advisor/internal/mockapi"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadMock()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts := []mockapi.Option{
		mockapi.WithLogger(logger),
		mockapi.WithSpeechLines(cfg.SpeechLines),
	}
	if cfg.FixturePath != "" {
		fixture, err := mockapi.LoadFixture(cfg.FixturePath)
		if err != nil {
			slog.Error("Failed to load prediction fixture", "error", err)
			os.Exit(1)
		}
		opts = append(opts, mockapi.WithFixture(fixture))
		slog.Info("Prediction fixture loaded", "path", cfg.FixturePath, "fertility_level", fixture.FertilityLevel)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mockapi.New(opts...).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // speech feed is a long-lived websocket
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
