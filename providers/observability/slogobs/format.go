package slogobs

import (
	"os"
	"strings"
)

// Format selects how records are rendered.
type Format string

const (
	// FormatCompact is one line per record with the attributes as JSON (default).
	//
	//	2025-11-03 10:40:35 DEBUG Span started → {"span":"recover"}
	FormatCompact Format = "compact"

	// FormatPretty puts each attribute on its own line, for reading failures by eye.
	FormatPretty Format = "pretty"

	// FormatJSON is one JSON object per record, for log aggregation.
	FormatJSON Format = "json"

	// FormatText is the standard library's logfmt-style key=value output.
	FormatText Format = "text"
)

// ParseFormat parses a format name. Unknown values map to FormatCompact.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads MEDIAREPORT_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	if format := os.Getenv("MEDIAREPORT_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}
