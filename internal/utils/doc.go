// Package utils holds small string helpers shared by the recovery pipeline and
// the report layer: rune-safe bounded prefixes for error diagnostics and
// truncation for log attributes.
package utils
