package parse

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput reports that the completion was empty or whitespace only.
	ErrEmptyInput = errors.New("empty completion")

	// ErrUnrecoverable reports that every repair heuristic was exhausted and
	// the text still is not valid JSON.
	ErrUnrecoverable = errors.New("unrecoverable JSON")

	// ErrDecode reports that a recovered value could not be decoded into the
	// caller's type. The JSON itself was valid; its shape was not.
	ErrDecode = errors.New("recovered JSON does not match target type")
)

// ErrorKind classifies a RecoveryError.
type ErrorKind int

const (
	KindEmptyInput ErrorKind = iota + 1
	KindUnrecoverableSyntax
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty_input"
	case KindUnrecoverableSyntax:
		return "unrecoverable_syntax"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RecoveryError is the terminal outcome of a failed recovery. It is the only
// error type returned by Recoverer.Run and friends, so callers can tell
// "no data" apart from a valid but empty structure with errors.As.
type RecoveryError struct {
	Kind ErrorKind

	// Prefix is a bounded prefix of the original completion, for diagnostics.
	Prefix string

	// InputLength is the byte length of the original completion.
	InputLength int

	// Err is the JSON parser error from the main pipeline. Nil for empty input.
	Err error

	// FallbackErr is the parser error from the last fallback candidate, if any
	// candidate was tried.
	FallbackErr error
}

func (e *RecoveryError) Error() string {
	if e.Kind == KindEmptyInput {
		return "parse: " + ErrEmptyInput.Error()
	}
	return fmt.Sprintf("parse: %s (input %d bytes): %v", ErrUnrecoverable, e.InputLength, e.Err)
}

// Unwrap exposes the underlying parser error, e.g. a *json.SyntaxError.
func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error kind.
func (e *RecoveryError) Is(target error) bool {
	switch target {
	case ErrEmptyInput:
		return e.Kind == KindEmptyInput
	case ErrUnrecoverable:
		return e.Kind == KindUnrecoverableSyntax
	}
	return false
}
