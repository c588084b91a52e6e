package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"dtmoney/internal/amqp"
	"dtmoney/internal/backend"
	"dtmoney/internal/cli"
	apihttp "dtmoney/internal/http"
	"dtmoney/internal/log"
	"dtmoney/internal/ports"
)

func main() {
	bootstrap := cli.SetupLogger("info", log.ComponentApp, os.Stdout)
	cfg := cli.MustLoadConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp, os.Stdout)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting dtmoney-server",
		"port", cfg.Port,
		"storage", cfg.StorageDriver)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer result.Close()

	var publisher ports.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apihttp.NewServer(apihttp.Options{
		Addr:               cfg.Addr(),
		Repository:         result.Repository,
		Publisher:          publisher,
		Ping:               result.Ping,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server shutdown complete")
}
