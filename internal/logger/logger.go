// Package logger provides structured JSON logging with redaction of
// sensitive attributes.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the log format (json, text).
	Format string
	// Output is the destination: stdout, stderr, or a file path. The
	// original deployment appended to form-submissions.log next to the
	// binary.
	Output string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// New creates a structured logger based on configuration.
func New(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = file
		}
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSensitive,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}

// sensitiveKeys are attribute-name fragments that must never reach the log.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"credential",
}

// redactSensitive masks attributes whose key contains a sensitive term
// (e.g. "password", "user_password").
func redactSensitive(groups []string, a slog.Attr) slog.Attr {
	if Sensitive(a.Key) {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// Sensitive reports whether a field name must be excluded from logged
// parameter dumps.
func Sensitive(name string) bool {
	key := strings.ToLower(name)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return true
		}
	}
	return false
}
