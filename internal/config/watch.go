package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// delivered.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures WatchFiles and Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	load     []Option
}

// WithDebounce sets the debounce duration for rapid changes.
// Zero delivers every change immediately.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithLoadOptions sets the options Watch passes to Load on every reload.
func WithLoadOptions(opts ...Option) WatchOption {
	return func(o *watchOptions) {
		o.load = opts
	}
}

// WatchFiles calls fn with the path of each watched file that is written,
// created or renamed into place. Parent directories are watched so editors
// that replace files atomically are seen. WatchFiles blocks until ctx is
// done and returns nil in that case.
func WatchFiles(ctx context.Context, paths []string, fn func(path string), opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	if len(paths) == 0 {
		return errors.New("no files to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		wanted[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	pending := make(map[string]time.Time)
	var tick <-chan time.Time
	if o.debounce > 0 {
		ticker := time.NewTicker(o.debounce)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !wanted[name] {
				continue
			}
			if o.debounce == 0 {
				fn(name)
				continue
			}
			pending[name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching config: %w", err)

		case now := <-tick:
			// Deliver files that have been stable for a full debounce period.
			stable := now.Add(-o.debounce)
			for name, at := range pending {
				if at.Before(stable) {
					delete(pending, name)
					fn(name)
				}
			}
		}
	}
}

// Watch reloads the configuration at path whenever the file changes and
// passes the result to fn. A reload that fails to parse or validate is
// delivered as an error and the watch continues.
func Watch(ctx context.Context, path string, fn func(Config, error), opts ...WatchOption) error {
	o := watchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return WatchFiles(ctx, []string{path}, func(string) {
		fn(Load(path, o.load...))
	}, opts...)
}
