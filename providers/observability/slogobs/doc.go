// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans, counters and histograms are emitted as structured log records, which
// is enough for the CLIs and for tests. Records go through Handler, which
// renders them compact (one line, attributes as JSON), pretty (one attribute
// per line) or as JSON objects; FormatText selects the standard library's
// text handler instead. Colors are used when the output is a terminal.
//
// Configure it with [WithFormat], [WithLevel], [WithOutput], [WithColors] and
// [WithLogger]; without options the format and level come from
// MEDIAREPORT_LOG_FORMAT and MEDIAREPORT_LOG_LEVEL (or LOG_FORMAT and
// LOG_LEVEL).
package slogobs
