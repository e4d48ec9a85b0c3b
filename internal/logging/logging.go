// Package logging installs the process-wide slog logger: colourised console
// output plus an optional rotating log file.
package logging

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

var levelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Level maps a flag value to a level. Unknown names mean info.
func Level(name string) log.Level {
	if l, ok := levelMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return log.LevelInfo
}

type Options struct {
	Level   string
	File    string // empty disables file logging
	Console io.Writer
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger. The returned closer flushes the log file.
func New(opt Options) (*log.Logger, io.Closer, error) {
	level := Level(opt.Level)

	console := opt.Console
	if console == nil {
		console = os.Stdout
	}

	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    opt.NoColor,
	})

	if opt.File == "" {
		return log.New(consoleHandler), nopCloser{}, nil
	}

	if err := probe(opt.File); err != nil {
		return log.New(consoleHandler), nopCloser{}, err
	}

	file := &lumberjack.Logger{
		Filename:   opt.File,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		LocalTime:  true,
	}

	handler := slogmulti.Fanout(
		consoleHandler,
		log.NewTextHandler(file, &log.HandlerOptions{Level: level}),
	)

	return log.New(handler), file, nil
}

// Setup installs the logger as the default. A log file that cannot be
// opened leaves console logging in place and is reported as a warning.
func Setup(opt Options) io.Closer {
	logger, closer, err := New(opt)
	log.SetDefault(logger)

	if err != nil {
		log.Warn("Logging to console only", "err", err)
	}

	return closer
}

func probe(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	return f.Close()
}
