package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// NewLogger creates the process logger. format is "json" (default) or
// "text", which renders colored output for terminals.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	switch format {
	case "", "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     lvl,
		})
	case "text":
		handler = tint.NewHandler(w, &tint.Options{Level: lvl, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

// SlogWriter bridges Printf-style and io.Writer loggers, such as the bulk
// indexers' debug loggers, into slog.
type SlogWriter struct {
	logger    *slog.Logger
	level     slog.Level
	component string
}

func NewSlogWriter(logger *slog.Logger, level slog.Level, component string) *SlogWriter {
	return &SlogWriter{
		logger:    logger,
		level:     level,
		component: component,
	}
}

// Write implements the io.Writer interface.
func (sw *SlogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	sw.logger.Log(context.Background(), sw.level, msg, slog.String("component", sw.component))
	return len(p), nil
}

func (sw *SlogWriter) Printf(format string, v ...interface{}) {
	sw.logger.Log(context.Background(), sw.level, strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", sw.component))
}
