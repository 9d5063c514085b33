package tree

import (
	"io"
	"log/slog"
)

type options struct {
	logger   *slog.Logger
	capacity int
}

// Option configures a Tree.
type Option func(*options)

// WithLogger sets the logger for structural edits. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCapacity preallocates room for n nodes.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.capacity < 0 {
		o.capacity = 0
	}
	return o
}
