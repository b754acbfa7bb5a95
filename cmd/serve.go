package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/app"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/config"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	logger.Info("starting shopd", "version", AppVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	addr := cfg.ServerAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	return a.Server.Run(ctx, addr)
}

// newLogger builds the process logger. SHOP_LOG_LEVEL=debug and
// SHOP_LOG_JSON=true tune it without touching the config file.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("SHOP_LOG_LEVEL") == "debug" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("SHOP_LOG_JSON") == "true" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
