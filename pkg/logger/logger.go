// Package logger builds the slog loggers used by every docmem command.
//
// Consumers log JSON when supervised and pretty output on a terminal; Multi
// lets the run command do both at once when a log file is configured.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	writer io.Writer
}

// New creates a *slog.Logger. By default it writes text records at Info level
// to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo, writer: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.pretty:
		return slog.New(charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
		}))
	case c.json:
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	default:
		return slog.New(slog.NewTextHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	}
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
