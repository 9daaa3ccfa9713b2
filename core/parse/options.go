package parse

import "github.com/leofalp/mediareport/providers/observability"

// DefaultPrefixLimit is the number of characters of the original completion
// kept in a RecoveryError.
const DefaultPrefixLimit = 1000

// maxFallbackCandidates bounds how many top-level blocks the fallback pass
// tries before giving up.
const maxFallbackCandidates = 64

// Option configures a Recoverer.
type Option func(*config)

type config struct {
	observer    observability.Provider
	prefixLimit int
	repair      bool
	useNumber   bool
}

// WithObserver routes diagnostics (applied stages, fallback, failures) to
// observer. Without it the Recoverer uses the observer stored in the context,
// if any. Observation never changes the returned value.
func WithObserver(observer observability.Provider) Option {
	return func(c *config) {
		c.observer = observer
	}
}

// WithPrefixLimit sets how many characters of the original text a
// RecoveryError keeps. Non-positive values restore DefaultPrefixLimit.
func WithPrefixLimit(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = DefaultPrefixLimit
		}
		c.prefixLimit = n
	}
}

// WithRepair enables a last-resort pass through jsonrepair once the built-in
// pipeline and the fallback have both failed. jsonrepair can quote bare
// words, close strings and fill in missing values, so it may invent data; a
// warning is logged whenever it produces the result.
func WithRepair() Option {
	return func(c *config) {
		c.repair = true
	}
}

// WithUseNumber decodes numbers as json.Number instead of float64, keeping
// large integers exact.
func WithUseNumber() Option {
	return func(c *config) {
		c.useNumber = true
	}
}

func defaultConfig() *config {
	return &config{
		prefixLimit: DefaultPrefixLimit,
	}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
