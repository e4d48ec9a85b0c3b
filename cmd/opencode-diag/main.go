package main

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"opencode/internal/audio/mic"
	"opencode/internal/config"
	"opencode/internal/diagnostics"
	"opencode/internal/docker"
	"opencode/internal/logging"
	"opencode/internal/sensors"
	"opencode/internal/shell"
)

func main() {
	cfg, err := config.Load("opencode-diag", os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		return
	}

	// the report itself goes to stdout, keep the console log on stderr
	closer := logging.Setup(logging.Options{Level: cfg.LogLevel, Console: os.Stderr})
	defer closer.Close()

	if err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := shell.Exec{}
	r := &diagnostics.Reporter{
		Host:         sensors.NewHost(),
		Net:          sensors.NewNetwork(runner),
		Docker:       docker.New(cfg.DockerBin, runner),
		AudioDevices: mic.Describe,
		Dir:          cfg.ReportDir,
		Out:          os.Stdout,
	}

	// A report that could not be saved was still printed.
	_, _ = r.Run(ctx)

	if ctx.Err() != nil {
		log.Warn("Diagnostics interrupted by user")
	}
}
