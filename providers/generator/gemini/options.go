package gemini

import (
	"net/http"

	"google.golang.org/genai"
)

// Option configures a Generator.
type Option func(*config)

type config struct {
	model             string
	temperature       *float32
	maxOutputTokens   int32
	systemInstruction string
}

// WithModel sets the model name. Empty values keep DefaultModel.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *config) {
		c.temperature = &t
	}
}

// WithMaxOutputTokens caps the completion length. A low cap makes truncated
// JSON more likely; the recoverer closes what it can.
func WithMaxOutputTokens(n int32) Option {
	return func(c *config) {
		c.maxOutputTokens = n
	}
}

// WithSystemInstruction sets the system instruction sent with every request.
func WithSystemInstruction(s string) Option {
	return func(c *config) {
		c.systemInstruction = s
	}
}

func defaultConfig() *config {
	return &config{model: DefaultModel}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ClientOption adjusts the genai client configuration built by NewClient.
type ClientOption func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint, e.g. a proxy.
func WithBaseURL(baseURL string) ClientOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPClient = hc
	}
}
