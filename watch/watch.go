// Package watch follows a box file written by another process and decodes
// each settled revision. It is strictly read-only: watching never opens the
// file for writing and never takes the single writer role.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ftxqxd/filebox"
	"golang.org/x/time/rate"
)

// Handler receives each observed revision: the decoded value, or the error
// if the bytes on disk did not decode. Handlers run on the watching
// goroutine.
type Handler[T any] func(value T, err error)

// Option configures a watch.
type Option func(*config)

type config struct {
	minInterval time.Duration
	logger      *slog.Logger
}

// MinInterval sets the minimum delay between decodes, collapsing write
// bursts into one observation of the settled bytes. The default is 100ms.
func MinInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.minInterval = d
		}
	}
}

// WithLogger routes watcher errors to logger instead of [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Watch blocks, invoking handler for every settled revision of the box file
// at path, until ctx is canceled or the file is removed. The watch follows
// the single file: removal or a rename-style replacement ends it with a nil
// error, cancellation with the context's error.
//
// The flusher writes in place, truncate then write, so a decode can catch
// the file mid-write; such revisions reach the handler as decode errors and
// the next write produces a clean one.
func Watch[T any](ctx context.Context, path string, codec filebox.Codec[T], handler Handler[T], opts ...Option) error {
	cfg := config{minInterval: 100 * time.Millisecond, logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	lim := rate.NewLimiter(rate.Every(cfg.minInterval), 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if err := lim.Wait(ctx); err != nil {
				return err
			}
			// Collapse the burst that queued up while waiting; only the
			// settled bytes matter.
			if removed := drain(w); removed {
				return nil
			}
			value, err := filebox.Peek(path, codec)
			handler(value, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.logger.WarnContext(ctx, "Error watching box file", "path", path, "err", err)
		}
	}
}

// drain consumes the events queued behind the one being handled and reports
// whether a removal ended the watch.
func drain(w *fsnotify.Watcher) bool {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return true
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return true
			}
		default:
			return false
		}
	}
}
