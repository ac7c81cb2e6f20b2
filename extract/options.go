package extract

import (
	"io"
	"log/slog"
)

type options struct {
	logger *slog.Logger
}

type Option func(o *options)

// WithLogger specifies the logger for rejected / accepted candidates
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
