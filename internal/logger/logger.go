// Package logger builds the application's slog logger, the zap logger the
// MTProto client requires, and a logging middleware for Bot API updates.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the optional rotated log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OpenOutput returns stdout, or stdout teed into a rotated file when a path
// is configured. Close flushes and closes the file; it is a no-op for stdout.
func OpenOutput(opts FileOptions) io.WriteCloser {
	if opts.Path == "" {
		return nopCloser{os.Stdout}
	}

	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return &teeCloser{Writer: io.MultiWriter(os.Stdout, file), file: file}
}

// ParseLevel maps a config level string to slog; unknown values mean info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a slog Logger writing to w with the given level.
// format "json" selects the JSON handler; anything else the text handler.
func NewLogger(levelStr, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewZap creates the zap logger handed to gotd. It logs JSON to w one level
// above the application level, since gotd is chatty at debug and info.
func NewZap(levelStr string, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	switch ParseLevel(levelStr) {
	case slog.LevelDebug:
		level = zapcore.InfoLevel
	case slog.LevelError:
		level = zapcore.ErrorLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core).Named("mtproto")
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type teeCloser struct {
	io.Writer
	file *lumberjack.Logger
}

func (t *teeCloser) Close() error { return t.file.Close() }
