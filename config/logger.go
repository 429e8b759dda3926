package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/tacvm/diag"
)

// ParseLevel maps a level name to a slog level. "trace" enables the stage
// events logged by diag.Trace without the per-instruction debug records.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return diag.LevelTrace, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// InitLogger installs the default slog logger. Records go to the log file
// if one is set, otherwise to stderr. The returned function closes the log
// file.
func InitLogger(c LogConfig) (func() error, error) {
	return initLogger(c, os.Stderr)
}

func initLogger(c LogConfig, fallback io.Writer) (func() error, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	output := fallback
	closer := func() error { return nil }

	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = f
		closer = f.Close
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == diag.LevelTrace {
				a.Value = slog.StringValue("TRACE")
			}
			return a
		},
	}

	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))

	return closer, nil
}
