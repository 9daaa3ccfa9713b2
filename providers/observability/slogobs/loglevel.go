package slogobs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below Debug and is only emitted when explicitly enabled.
const LevelTrace = slog.LevelDebug - 4

// GetLogLevelFromEnv reads MEDIAREPORT_LOG_LEVEL, then LOG_LEVEL.
// Default: INFO.
func GetLogLevelFromEnv() slog.Level {
	level := os.Getenv("MEDIAREPORT_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return slog.LevelInfo
	}
	return ParseLogLevel(level)
}

// ParseLogLevel parses TRACE, DEBUG, INFO, WARN, WARNING or ERROR
// (case-insensitive). Unknown values fall back to INFO.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogLevelString returns the canonical name for level.
func LogLevelString(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
