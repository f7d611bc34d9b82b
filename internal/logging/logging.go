// Package logging configures the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/musicbox/internal/config"
)

// Setup builds the root logger from cfg, writing to w, and installs it as
// the global zerolog logger.
//
// An empty format selects console output when w is a terminal and JSON
// otherwise.
func Setup(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%w: log level %q", config.ErrConfiguration, cfg.Level)
		}
	}

	out := w
	switch cfg.Format {
	case "json":
	case "console":
		out = consoleWriter(w)
	case "":
		if IsTerminal(w) {
			out = consoleWriter(w)
		}
	default:
		return zerolog.Nop(), fmt.Errorf("%w: log format %q", config.ErrConfiguration, cfg.Format)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
}

// IsTerminal reports whether w is a character device.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
