package filebox

import (
	"log/slog"
)

// Observer is notified after each successful flush, once the encoded value
// has fully reached the backing file. Observers run synchronously on the
// flushing goroutine. An observer error does not undo the flush, which is
// already durable; it is joined into the error returned by Flush or Close.
type Observer interface {
	OnFlush(path string) error
}

// Option configures a box at construction time.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	observers   []Observer
	noFinalizer bool
}

func applyOptions(opts []Option) config {
	cfg := config{logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithLogger routes the box's side channel reporting, which is finalizer
// flushes and their failures, to logger instead of [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithObserver registers an observer for the box's flushes. It may be given
// multiple times; observers run in registration order.
func WithObserver(o Observer) Option {
	return func(cfg *config) {
		if o != nil {
			cfg.observers = append(cfg.observers, o)
		}
	}
}

// WithoutFinalizer disables the garbage collection safety net for this box,
// for tests and for programs that release every box explicitly.
func WithoutFinalizer() Option {
	return func(cfg *config) {
		cfg.noFinalizer = true
	}
}
