package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize installs a logger writing to w as the slog default. Reports go
// to stdout, so callers pass stderr here.
func Initialize(w io.Writer, format string, levelName string) error {
	logger, err := New(w, format, levelName)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	slog.Debug("logging initialized", "format", format, "level", levelName)
	return nil
}

// New builds a logger without touching the default. Tint output is only
// colored when w is a terminal, so CI logs stay free of escape codes.
func New(w io.Writer, format string, levelName string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level: %w", err)
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var h slog.Handler
	switch format {
	case JSON:
		h = slog.NewJSONHandler(w, opts)
	case Text:
		h = slog.NewTextHandler(w, opts)
	case Tint:
		h = tint.NewHandler(w, &tint.Options{
			AddSource:  opts.AddSource,
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	default:
		return nil, fmt.Errorf("unknown logging format: %s", format)
	}
	return slog.New(h), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}
