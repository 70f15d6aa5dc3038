// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging wires the daemon's structured logger: console output with
// color when attached to a TTY, and an optional rotating file sink.
package logging

import (
	"io"
	"os"

	"github.com/luxfi/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where logs go and how verbose they are.
type Config struct {
	Level      string // trace, debug, info, warn, error, crit
	FilePath   string // empty disables file logging
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig returns sane daemon defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}

// New builds the root logger for the process and installs it as the default
// so every package-level log.Root() call picks it up.
func New(cfg Config) (log.Logger, error) {
	lvl, err := log.LvlFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = colorable.NewColorableStdout()
	} else {
		out = os.Stdout
	}

	if cfg.FilePath != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	}

	handler := log.NewTerminalHandler(out, isatty.IsTerminal(os.Stdout.Fd()))
	logger := log.NewLogger(log.LvlFilterHandler(lvl, handler))
	log.SetDefault(logger)
	return logger, nil
}
