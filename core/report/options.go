package report

import (
	"time"

	"github.com/leofalp/mediareport/core/parse"
	"github.com/leofalp/mediareport/providers/observability"
)

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	recoverer   *parse.Recoverer
	observer    observability.Provider
	maxAttempts int
	timeout     time.Duration
}

// WithRecoverer sets the Recoverer used on every completion. Defaults to
// parse.New() with no options.
func WithRecoverer(r *parse.Recoverer) Option {
	return func(c *config) {
		if r != nil {
			c.recoverer = r
		}
	}
}

// WithObserver sets the observability provider. It is also made available to
// the generator and the recoverer through the context.
func WithObserver(observer observability.Provider) Option {
	return func(c *config) {
		c.observer = observer
	}
}

// WithMaxAttempts sets how many completions may be requested when the
// previous one could not be recovered. Values below 1 are treated as 1.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.maxAttempts = n
	}
}

// WithTimeout bounds each call to the generator. Zero means no timeout
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

func defaultConfig() *config {
	return &config{
		recoverer:   parse.New(),
		maxAttempts: 1,
	}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
