package langchain

import "log/slog"

type options struct {
	provider    string
	logger      *slog.Logger
	dimension   int
	temperature float64
}

// Option configures an Embedder or a Generator.
type Option func(*options)

// WithProviderName labels errors and log lines with the backend name.
func WithProviderName(name string) Option {
	return func(o *options) {
		o.provider = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDimension makes the Embedder reject vectors of any other length.
// Zero disables the check.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithTemperature sets the sampling temperature used by the Generator.
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = t
	}
}

func newOptions(component string, opts []Option) *options {
	o := &options{provider: "langchain"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", o.provider+"-"+component)
	return o
}
