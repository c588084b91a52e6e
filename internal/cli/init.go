// Package cli holds the initialization shared by the commands under cmd/
// and the dtmoney client application itself.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dtmoney/internal/config"
	"dtmoney/internal/log"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and makes it
// the slog default.
func SetupLogger(level, component string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads .env (when present) and the environment, then validates.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClientConfig is LoadConfig for the dtmoney CLI: it reads and checks
// only the client settings.
func LoadClientConfig() (*config.ClientConfig, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg := config.LoadClient()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig for main functions: it exits on failure.
func MustLoadConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
