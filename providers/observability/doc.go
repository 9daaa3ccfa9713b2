// Package observability defines the tracing, metrics and logging interfaces
// used throughout mediareport, together with the attribute keys, span names
// and metric names every component records under.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. A Provider and the active [Span] can travel through a
// [context.Context] with [ContextWithObserver] and [ContextWithSpan].
// Concrete implementations live in subpackages; see slogobs.
package observability
