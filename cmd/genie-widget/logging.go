package main

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/config"
)

// initLogger installs the global zerolog logger writing to w.
func initLogger(cfg config.LogConfig, w io.Writer) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// initFileLogger sends logs to path so they do not draw over the terminal UI.
func initFileLogger(cfg config.LogConfig, path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	fileCfg := cfg
	fileCfg.Format = "json"
	if err := initLogger(fileCfg, f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
