package config

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
)

// LevelDisable drops every record.
const LevelDisable slog.Level = math.MaxInt

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "disable":
		return LevelDisable, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q", level)
	}
}

// ParseFormat parses a format name. The empty string is text.
func ParseFormat(format string) (string, error) {
	switch format {
	case FormatText, FormatJSON:
		return format, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown log format %q", format)
	}
}

// Handler builds the slog handler described by l, writing to w.
func (l Log) Handler(w io.Writer) (slog.Handler, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}

// Configure installs the handler described by l as the slog default.
func (l Log) Configure(w io.Writer) error {
	h, err := l.Handler(w)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(h))
	return nil
}
