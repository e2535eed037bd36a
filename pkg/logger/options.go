package logger

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug. Chunk-level records (stored,
// published, retried) are only emitted at Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the charmbracelet/log handler for interactive use.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, one record per line.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter sets the destination. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// FormatOptions resolves a configured format name ("auto", "pretty", "json",
// "text") into logger options. "auto" picks pretty output when f is a
// terminal and JSON otherwise, so a consumer under a supervisor logs JSON.
func FormatOptions(format string, f *os.File) []Option {
	switch format {
	case "pretty":
		return []Option{WithPretty(true)}
	case "json":
		return []Option{WithJSON(true)}
	case "text":
		return nil
	default:
		if f != nil && term.IsTerminal(int(f.Fd())) {
			return []Option{WithPretty(true)}
		}
		return []Option{WithJSON(true)}
	}
}
