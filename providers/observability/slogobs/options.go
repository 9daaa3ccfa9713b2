package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option is a functional option for configuring the Observer.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	logger *slog.Logger // takes precedence over format/level/output/colors
}

// WithFormat sets the log output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the writer logs go to. Defaults to os.Stderr so that
// command output on stdout stays machine-readable.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors forces ANSI colors in compact and pretty output. Without it
// colors are used only when the output is a terminal.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = enabled
	}
}

// WithLogger uses an existing slog.Logger instead of building a handler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func defaultConfig() *config {
	return &config{
		format: GetFormatFromEnv(),
		level:  GetLogLevelFromEnv(),
		output: os.Stderr,
	}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// newHandler builds the slog.Handler described by cfg.
func newHandler(cfg *config) slog.Handler {
	output := cfg.output
	if output == nil {
		output = os.Stderr
	}
	if cfg.format == FormatText {
		return slog.NewTextHandler(output, &slog.HandlerOptions{Level: cfg.level})
	}
	return NewHandler(&HandlerOptions{
		Format: cfg.format,
		Level:  cfg.level,
		Output: output,
		Colors: cfg.colors,
	})
}
