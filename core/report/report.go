package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/mediareport/core/parse"
	"github.com/leofalp/mediareport/providers/observability"
)

var (
	// ErrNoGenerator is returned by New when no Generator is supplied.
	ErrNoGenerator = errors.New("report: generator is required")

	// ErrEmptyMedia is returned when a request carries no media, or a media
	// part with no bytes.
	ErrEmptyMedia = errors.New("report: request has no media")
)

// Media is one inline video or audio attachment.
type Media struct {
	MIMEType string
	Data     []byte
}

// Request describes one analysis: the instruction, the media it applies to
// and an optional JSON schema the generator may use as an output hint.
type Request struct {
	Prompt string
	Media  []Media

	// Schema is passed to the generator as-is. Generators that cannot use it
	// ignore it; the completion is recovered the same way either way.
	Schema any
}

// Completion is the raw text produced by a Generator.
type Completion struct {
	Text  string
	Model string
}

// Generator produces a raw completion for a request. Implementations must be
// safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (Completion, error)
}

// Result is a successfully recovered report.
type Result struct {
	// Value is the recovered JSON value (map[string]any, []any, ...).
	Value any

	// JSON is the normalized JSON text Value was parsed from.
	JSON string

	// Raw is the completion text exactly as the generator returned it.
	Raw string

	Model    string
	Attempts int
}

// Analyzer sends media to a Generator and recovers structured JSON from the
// completion. A completion that cannot be recovered is reported as a
// *parse.RecoveryError, never as an empty report.
type Analyzer struct {
	gen Generator
	cfg *config
}

// New creates an Analyzer backed by gen.
func New(gen Generator, opts ...Option) (*Analyzer, error) {
	if gen == nil {
		return nil, ErrNoGenerator
	}
	return &Analyzer{gen: gen, cfg: applyOptions(opts...)}, nil
}

// Analyze generates a completion for req and recovers its JSON. When the
// completion is unrecoverable and the attempt budget allows it, a new
// completion is requested. Generation errors are not retried.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	obs := a.cfg.observer
	if obs == nil {
		obs = observability.ObserverFromContext(ctx)
	} else {
		ctx = observability.ContextWithObserver(ctx, obs)
	}

	var span observability.Span
	if obs != nil {
		ctx, span = obs.StartSpan(ctx, observability.SpanAnalyze,
			observability.Int(observability.AttrGeneratorMediaCount, len(req.Media)),
			observability.Int(observability.AttrAnalyzeMaxAttempts, a.cfg.maxAttempts),
		)
		if span != nil {
			defer span.End()
		}
	}

	res, err := a.attempt(ctx, obs, span, req)

	if obs != nil && res != nil {
		obs.Histogram(observability.MetricAnalyzeAttempts).Record(ctx, float64(res.Attempts))
	}
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			span.SetAttributes(
				observability.String(observability.AttrGeneratorModel, res.Model),
				observability.Int(observability.AttrAnalyzeAttempt, res.Attempts),
			)
			span.SetStatus(observability.StatusOK, "")
		}
	}
	return res, err
}

func (a *Analyzer) attempt(ctx context.Context, obs observability.Provider, span observability.Span, req Request) (*Result, error) {
	var lastErr error
	for n := 1; n <= a.cfg.maxAttempts; n++ {
		completion, err := a.generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("report: generate (attempt %d): %w", n, err)
		}

		recovered, err := a.cfg.recoverer.Run(ctx, completion.Text)
		if err == nil {
			return &Result{
				Value:    recovered.Value,
				JSON:     recovered.JSON,
				Raw:      completion.Text,
				Model:    completion.Model,
				Attempts: n,
			}, nil
		}

		var recErr *parse.RecoveryError
		if !errors.As(err, &recErr) {
			return nil, err
		}
		lastErr = err

		if n < a.cfg.maxAttempts {
			if obs != nil {
				obs.Warn(ctx, "Completion unrecoverable, requesting a new one",
					observability.Int(observability.AttrAnalyzeAttempt, n),
					observability.Int(observability.AttrAnalyzeMaxAttempts, a.cfg.maxAttempts),
					observability.Error(err),
				)
			}
			if span != nil {
				span.AddEvent(observability.EventAnalyzeRetry, observability.Int(observability.AttrAnalyzeAttempt, n))
			}
		}
	}
	return nil, lastErr
}

func (a *Analyzer) generate(ctx context.Context, req Request) (Completion, error) {
	if a.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.timeout)
		defer cancel()
	}
	return a.gen.Generate(ctx, req)
}

// TypedResult is a Result whose value was decoded into T.
type TypedResult[T any] struct {
	Value T
	*Result
}

// AnalyzeAs runs Analyze and decodes the recovered JSON into T. A value that
// does not fit T is reported with parse.ErrDecode; it does not consume a
// retry.
func AnalyzeAs[T any](ctx context.Context, a *Analyzer, req Request) (*TypedResult[T], error) {
	res, err := a.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	var value T
	if err := parse.DecodeInto(res.JSON, &value); err != nil {
		return nil, err
	}
	return &TypedResult[T]{Value: value, Result: res}, nil
}

func validate(req Request) error {
	if len(req.Media) == 0 {
		return ErrEmptyMedia
	}
	for i, m := range req.Media {
		if len(m.Data) == 0 {
			return fmt.Errorf("%w: media %d is empty", ErrEmptyMedia, i)
		}
	}
	return nil
}

// TotalBytes returns the combined size of the request's media.
func (r Request) TotalBytes() int64 {
	var total int64
	for _, m := range r.Media {
		total += int64(len(m.Data))
	}
	return total
}

// MIMETypes returns the MIME type of each media part, in order.
func (r Request) MIMETypes() []string {
	types := make([]string, len(r.Media))
	for i, m := range r.Media {
		types[i] = m.MIMEType
	}
	return types
}
