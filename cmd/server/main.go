// Package main is the entry point for the NBA odds proxy, which caches
// moneyline odds from the upstream provider and serves per-team views to
// the dashboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/config"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/otel"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/server"
)

// main is the entry point for the application
func main() {
	// Load configuration (.env, optional YAML file, environment)
	cfg, err := config.Load()

	// Configure logging once .env values are visible
	setupLogging()

	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Odds.APIKey == "" {
		logrus.Warn("ODDS_API_KEY is not set, odds requests will fail with a configuration error")
	}

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint, cfg.Version)
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, server.Deps{}).Run(ctx); err != nil {
		logrus.Errorf("Server error: %v", err)
		stop()
		shutdownTracer()
		os.Exit(1)
	}
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	// Set log formatter based on environment
	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Set log level based on environment
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}
