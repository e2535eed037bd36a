// Package watch reports files that appear in a directory once they stop
// changing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettle = 500 * time.Millisecond

// Config selects the directory and how long a file must stay quiet.
type Config struct {
	Dir string

	// Settle is the quiet period after the last write before a file is
	// reported (defaults to 500ms).
	Settle time.Duration

	// Existing reports the regular files already in Dir when Run starts.
	Existing bool

	Logger *slog.Logger
}

// Watcher watches one directory, non-recursively. Hidden files are ignored.
type Watcher struct {
	config Config
	fs     *fsnotify.Watcher
	logger *slog.Logger
}

// New starts watching c.Dir. Events are only consumed once Run is called.
func New(c Config) (*Watcher, error) {
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}

	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", c.Dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fs.Add(c.Dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{config: c, fs: fs, logger: c.Logger}, nil
}

type settled struct {
	path string
	gen  uint64
}

type pending struct {
	gen   uint64
	timer *time.Timer
}

// Run calls fn, one call at a time, for every file that was created or
// written and then left alone for the settle period. It returns nil when ctx
// is done and the watcher's error if watching fails.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, path string)) error {
	if w.config.Existing {
		if err := w.existing(ctx, fn); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)

	ready := make(chan settled)
	waiting := map[string]*pending{}
	var gen uint64

	defer func() {
		for _, p := range waiting {
			p.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if hidden(path) {
				continue
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if p, ok := waiting[path]; ok {
					p.timer.Stop()
					delete(waiting, path)
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if p, ok := waiting[path]; ok {
				p.timer.Stop()
			}
			gen++
			s := settled{path: path, gen: gen}
			waiting[path] = &pending{
				gen: gen,
				timer: time.AfterFunc(w.config.Settle, func() {
					select {
					case ready <- s:
					case <-done:
					}
				}),
			}

		case s := <-ready:
			p, ok := waiting[s.path]
			if !ok || p.gen != s.gen {
				continue
			}
			delete(waiting, s.path)

			info, err := os.Stat(s.path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			fn(ctx, s.path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) existing(ctx context.Context, fn func(ctx context.Context, path string)) error {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", w.config.Dir, err)
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !e.Type().IsRegular() || hidden(e.Name()) {
			continue
		}
		fn(ctx, filepath.Join(w.config.Dir, e.Name()))
	}
	w.logger.Debug("reported existing files", "dir", w.config.Dir, "entries", len(entries))
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
