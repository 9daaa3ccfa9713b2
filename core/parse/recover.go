package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/mediareport/internal/utils"
	"github.com/leofalp/mediareport/providers/observability"
)

// Result describes a successful recovery.
type Result struct {
	// Value is the parsed JSON document: map[string]any, []any, string,
	// float64 (or json.Number), bool or nil.
	Value any

	// JSON is the normalized text that was parsed.
	JSON string

	// Stages lists the normalization stages that changed the text, in order.
	Stages []string

	// Fallback is true when the value came from the fallback re-extraction.
	Fallback bool

	// Repaired is true when the value came from the opt-in jsonrepair pass.
	Repaired bool
}

// Recoverer turns noisy, nominally-JSON model output into parsed values.
// It holds only immutable configuration and is safe for concurrent use.
type Recoverer struct {
	cfg *config
}

// New creates a Recoverer.
func New(opts ...Option) *Recoverer {
	return &Recoverer{cfg: applyOptions(opts...)}
}

var defaultRecoverer = New()

// Recover parses text with the default Recoverer and returns the recovered
// value. On failure the error is a *RecoveryError.
//
//	v, err := parse.Recover("Sure! Here you go: {\"a\":1} Hope that helps!")
//	// v == map[string]any{"a": 1.0}
func Recover(text string) (any, error) {
	return defaultRecoverer.Recover(context.Background(), text)
}

// Recover returns the recovered value for text, or a *RecoveryError.
func (r *Recoverer) Recover(ctx context.Context, text string) (any, error) {
	res, err := r.Run(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Repair returns the normalized JSON text for text instead of the parsed
// value, or a *RecoveryError.
func (r *Recoverer) Repair(ctx context.Context, text string) (string, error) {
	res, err := r.Run(ctx, text)
	if err != nil {
		return "", err
	}
	return res.JSON, nil
}

// Run executes the recovery pipeline:
//
//  1. trim whitespace (empty input fails here, before any heuristic)
//  2. strip code fences
//  3. isolate the outermost {...} or [...] span
//  4. strip trailing commas
//  5. strip control characters
//  6. append missing closers, then strip any comma they left dangling
//  7. parse
//  8. on failure, re-extract top-level blocks from the trimmed input and parse each
//  9. optionally hand the trimmed input to jsonrepair (WithRepair)
//
// Already valid input is parsed as-is. After each stage the text is checked
// and the remaining stages only run while it is still invalid.
func (r *Recoverer) Run(ctx context.Context, text string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	obs := r.cfg.observer
	if obs == nil {
		obs = observability.ObserverFromContext(ctx)
	}

	start := time.Now()
	var span observability.Span
	if obs != nil {
		ctx, span = obs.StartSpan(ctx, observability.SpanRecover,
			observability.Int(observability.AttrRecoverInputLength, len(text)),
		)
		if span != nil {
			defer span.End()
		}
	}

	res, err := r.run(ctx, obs, span, text)

	if obs != nil {
		obs.Histogram(observability.MetricRecoverDuration).Record(ctx, float64(time.Since(start).Milliseconds()))
		if err != nil {
			obs.Counter(observability.MetricRecoverFailure).Add(ctx, 1)
		} else {
			obs.Counter(observability.MetricRecoverSuccess).Add(ctx, 1)
		}
	}
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			span.SetAttributes(
				observability.Strings(observability.AttrRecoverStages, res.Stages),
				observability.Bool(observability.AttrRecoverFallback, res.Fallback),
				observability.Bool(observability.AttrRecoverRepaired, res.Repaired),
				observability.Int(observability.AttrRecoverOutputLength, len(res.JSON)),
			)
			span.SetStatus(observability.StatusOK, "")
		}
	}
	return res, err
}

func (r *Recoverer) run(ctx context.Context, obs observability.Provider, span observability.Span, text string) (*Result, error) {
	trimmed := trim(text)
	if trimmed == "" {
		return nil, &RecoveryError{Kind: KindEmptyInput, InputLength: len(text)}
	}

	candidate := trimmed
	var applied []string
	if !json.Valid([]byte(candidate)) {
		for _, st := range pipeline {
			next := st.apply(candidate)
			if next == candidate {
				continue
			}
			candidate = next
			applied = append(applied, st.name)
			if span != nil {
				span.AddEvent(observability.EventRecoverStage, observability.String(observability.AttrRecoverStage, st.name))
			}
			if json.Valid([]byte(candidate)) {
				break
			}
		}
	}

	value, err := r.decode(candidate)
	if err == nil {
		return &Result{Value: value, JSON: candidate, Stages: applied}, nil
	}
	primaryErr := err

	if obs != nil {
		obs.Debug(ctx, "Normalized completion still invalid, trying fallback extraction",
			observability.Strings(observability.AttrRecoverStages, applied),
			observability.Error(primaryErr),
		)
	}

	res, fallbackErr := r.fallback(trimmed)
	if res != nil {
		res.Stages = applied
		if span != nil {
			span.AddEvent(observability.EventRecoverFallback)
		}
		return res, nil
	}

	if r.cfg.repair {
		if res := r.repair(ctx, obs, trimmed); res != nil {
			res.Stages = applied
			if span != nil {
				span.AddEvent(observability.EventRecoverRepair)
			}
			return res, nil
		}
	}

	recErr := &RecoveryError{
		Kind:        KindUnrecoverableSyntax,
		Prefix:      utils.Prefix(text, r.cfg.prefixLimit),
		InputLength: len(text),
		Err:         primaryErr,
		FallbackErr: fallbackErr,
	}
	if obs != nil {
		obs.Warn(ctx, "Completion could not be recovered as JSON",
			observability.String(observability.AttrRecoverErrorKind, recErr.Kind.String()),
			observability.String(observability.AttrRecoverPrefix, utils.TruncateStringDefault(recErr.Prefix)),
			observability.Error(primaryErr),
		)
	}
	return nil, recErr
}

// fallback walks the top-level bracket-balanced blocks of the trimmed input
// and returns the first one that parses after comma and control-character
// cleanup. Blocks nested inside an earlier block are never candidates, so a
// fragment of a broken document is not returned as if it were the whole.
func (r *Recoverer) fallback(trimmed string) (*Result, error) {
	var lastErr error
	from := 0
	for range maxFallbackCandidates {
		start, end, ok := balancedSpan(trimmed, from)
		if !ok {
			break
		}
		candidate := stripTrailingCommas(stripControlChars(trimmed[start : end+1]))
		value, err := r.decode(candidate)
		if err == nil {
			return &Result{Value: value, JSON: candidate, Fallback: true}, nil
		}
		lastErr = err
		from = end + 1
	}
	return nil, lastErr
}

func (r *Recoverer) repair(ctx context.Context, obs observability.Provider, trimmed string) *Result {
	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		if obs != nil {
			obs.Debug(ctx, "jsonrepair rejected completion", observability.Error(err))
		}
		return nil
	}
	value, err := r.decode(repaired)
	if err != nil {
		return nil
	}
	if obs != nil {
		obs.Warn(ctx, "Completion recovered by jsonrepair; values may have been inferred",
			observability.Int(observability.AttrRecoverOutputLength, len(repaired)),
		)
	}
	return &Result{Value: value, JSON: repaired, Repaired: true}
}

// decode strictly parses a single JSON document; trailing data is an error.
func (r *Recoverer) decode(text string) (any, error) {
	data := []byte(text)
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	if !r.cfg.useNumber {
		return value, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value = nil
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}
