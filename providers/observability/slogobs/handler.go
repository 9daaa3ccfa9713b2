package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Handler is a slog.Handler that writes compact, pretty or JSON records. It
// is what the CLIs log through on stderr.
type Handler struct {
	format Format
	level  slog.Leveler
	output io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Format is FormatCompact, FormatPretty or FormatJSON. Defaults to FormatCompact.
	Format Format

	// Level is the minimum level written.
	Level slog.Leveler

	// Output defaults to os.Stderr.
	Output io.Writer

	// Colors forces ANSI colors for compact and pretty output. When false,
	// colors are still enabled if Output is a terminal.
	Colors bool
}

// NewHandler creates a Handler.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	format := opts.Format
	if format == "" || format == FormatText {
		format = FormatCompact
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	colors := opts.Colors
	if !colors && format != FormatJSON {
		if f, ok := output.(*os.File); ok {
			colors = isTerminal(f)
		}
	}

	return &Handler{
		format: format,
		level:  level,
		output: output,
		colors: colors,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes r.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf []byte
	var err error
	switch h.format {
	case FormatPretty:
		buf = h.formatPretty(r)
	case FormatJSON:
		buf, err = h.formatJSON(r)
	default:
		buf, err = h.formatCompact(r)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(buf)
	return err
}

// WithAttrs returns a Handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix(a.Key), Value: a.Value})
	}
	return &clone
}

// WithGroup returns a Handler that prefixes later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) prefix(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

// field is one flattened attribute, in record order.
type field struct {
	key   string
	value any
}

func (h *Handler) fields(r slog.Record) []field {
	out := make([]field, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		out = appendField(out, "", a)
	}
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		out = appendField(out, prefix, a)
		return true
	})
	return out
}

func appendField(out []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return out
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			out = appendField(out, prefix+a.Key+".", ga)
		}
		return out
	}
	return append(out, field{key: prefix + a.Key, value: plainValue(a.Value)})
}

// plainValue converts v into something json.Marshal and %v render readably.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

// formatCompact renders one line: time, level, message and the attributes
// as a JSON object.
//
//	2025-11-03 10:40:35  WARN Completion could not be recovered as JSON → {"recover.error.kind":"unrecoverable_syntax"}
func (h *Handler) formatCompact(r slog.Record) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, r.Level, fmt.Sprintf("%5s", levelString(r.Level)))
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	if fields := h.fields(r); len(fields) > 0 {
		obj, err := marshalFields(fields)
		if err != nil {
			return nil, err
		}
		buf = append(buf, " → "...)
		buf = append(buf, obj...)
	}
	return append(buf, '\n'), nil
}

// formatPretty renders the message line followed by one attribute per line.
//
//	2025-11-03 10:40:35 DEBUG  Span started
//	                    ├─ span: recover
//	                    └─ recover.input.length: 42
func (h *Handler) formatPretty(r slog.Record) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	level := levelString(r.Level)
	buf = h.appendLevel(buf, r.Level, level)
	buf = append(buf, strings.Repeat(" ", 7-len(level))...)
	buf = append(buf, r.Message...)
	buf = append(buf, '\n')

	fields := h.fields(r)
	for i, f := range fields {
		branch := "├─ "
		if i == len(fields)-1 {
			branch = "└─ "
		}
		buf = append(buf, strings.Repeat(" ", 20)...)
		buf = append(buf, branch...)
		buf = append(buf, f.key...)
		buf = append(buf, ": "...)
		buf = append(buf, fmt.Sprintf("%v", f.value)...)
		buf = append(buf, '\n')
	}
	return buf
}

// formatJSON renders one JSON object per record with time, level and msg
// first and the attributes after them, in record order.
func (h *Handler) formatJSON(r slog.Record) ([]byte, error) {
	fields := append([]field{
		{key: "time", value: r.Time.Format("2006-01-02T15:04:05")},
		{key: "level", value: levelString(r.Level)},
		{key: "msg", value: r.Message},
	}, h.fields(r)...)

	buf, err := marshalFields(fields)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// marshalFields encodes fields as a JSON object, keeping their order. A
// repeated key keeps its last value.
func marshalFields(fields []field) ([]byte, error) {
	last := make(map[string]int, len(fields))
	for i, f := range fields {
		last[f.key] = i
	}

	buf := []byte{'{'}
	first := true
	for i, f := range fields {
		if last[f.key] != i {
			continue
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			val, _ = json.Marshal(fmt.Sprintf("%v", f.value))
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func (h *Handler) appendLevel(buf []byte, level slog.Level, text string) []byte {
	if !h.colors {
		return append(buf, text...)
	}
	buf = append(buf, colorForLevel(level)...)
	buf = append(buf, text...)
	return append(buf, colorReset...)
}

// levelString names a level, including TRACE below debug.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
