package parse

import (
	"context"
	"encoding/json"
	"fmt"
)

// RecoverAs recovers JSON from text and decodes it into T.
//
// Recovery failures are returned as *RecoveryError. When the recovered JSON
// is valid but does not fit T, decoding is retried once after unwrapping
// schema-style {"type": ..., "value": ...} envelopes, a common mistake when a
// model echoes the schema it was given. If that also fails the error wraps
// ErrDecode.
//
//	type Scene struct {
//	    Title string  `json:"title"`
//	    Start float64 `json:"start"`
//	}
//
//	scene, err := parse.RecoverAs[Scene]("```json\n{\"title\":\"Intro\",\"start\":0,}\n```")
func RecoverAs[T any](text string, opts ...Option) (T, error) {
	return RecoverAsWith[T](context.Background(), New(opts...), text)
}

// RecoverAsWith is RecoverAs using an existing Recoverer.
func RecoverAsWith[T any](ctx context.Context, r *Recoverer, text string) (T, error) {
	var result T

	res, err := r.Run(ctx, text)
	if err != nil {
		return result, err
	}
	if err := DecodeInto(res.JSON, &result); err != nil {
		return result, err
	}
	return result, nil
}

// DecodeInto decodes recovered JSON text into target, applying the
// schema-envelope unwrap when the direct decode fails.
func DecodeInto(jsonText string, target any) error {
	err := json.Unmarshal([]byte(jsonText), target)
	if err == nil {
		return nil
	}

	unwrapped, unwrapErr := unwrapSchemaValues(jsonText)
	if unwrapErr == nil && unwrapped != jsonText {
		if retryErr := json.Unmarshal([]byte(unwrapped), target); retryErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: decode as %T: %v", ErrDecode, target, err)
}

// unwrapSchemaValues replaces every {"type": ..., "value": ...} object with
// its value, recursively.
//
// Example input:
//
//	{"name": {"type": "string", "value": "John"}, "age": {"type": "integer", "value": 30}}
//
// Example output:
//
//	{"name": "John", "age": 30}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	out, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
