package main

import (
	"context"
	"fmt"
	"os"

	"dtmoney/internal/cli"
	"dtmoney/internal/log"
)

func main() {
	cfg, err := cli.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitUsage)
	}

	// logs go to stderr so tables on stdout stay clean
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp, os.Stderr)

	app, err := cli.NewApp(cli.AppConfig{APIURL: cfg.APIURL, Timeout: cfg.HTTPTimeout}, os.Stdout, os.Stderr, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitUsage)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	code := app.Run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}
