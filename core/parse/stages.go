package parse

import "strings"

// Stage names, as reported in Result.Stages and in log attributes.
const (
	StageFences         = "strip_fences"
	StageIsolate        = "isolate_span"
	StageTrailingCommas = "strip_trailing_commas"
	StageControlChars   = "strip_control_chars"
	StageBalance        = "balance_brackets"
)

type stage struct {
	name  string
	apply func(string) string
}

// pipeline lists the normalization stages in the order they run. Trimming
// happens before the pipeline and parsing after it.
var pipeline = []stage{
	{name: StageFences, apply: stripFences},
	{name: StageIsolate, apply: isolateSpan},
	{name: StageTrailingCommas, apply: stripTrailingCommas},
	{name: StageControlChars, apply: stripControlChars},
	{name: StageBalance, apply: balanceBrackets},
	// Appended closers can expose a dangling comma: {"a":[1,2, -> {"a":[1,2,]}.
	{name: StageTrailingCommas, apply: stripTrailingCommas},
}

// trim removes surrounding whitespace and a leading byte order mark.
func trim(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.TrimSpace(s)
}

const fence = "```"

// stripFences removes every ```json and ``` delimiter outside string
// literals, wherever it appears. Fences inside a JSON string value are data
// and stay.
func stripFences(s string) string {
	if !strings.Contains(s, fence) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	var st scanState
	for i := 0; i < len(s); {
		if !st.inString && strings.HasPrefix(s[i:], fence) {
			i += len(fence)
			if hasJSONTag(s[i:]) {
				i += len("json")
			}
			continue
		}
		st.step(s[i])
		b.WriteByte(s[i])
		i++
	}
	return strings.TrimSpace(b.String())
}

// hasJSONTag reports whether s starts with the word "json", in any case.
func hasJSONTag(s string) bool {
	if len(s) < 4 || !strings.EqualFold(s[:4], "json") {
		return false
	}
	return len(s) == 4 || !isWordByte(s[4])
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// isolateSpan keeps the text from the first opener (outside string literals)
// to the last closer of the same kind, dropping surrounding prose. The end is
// the last closer anywhere in the text: string tracking past a broken literal
// could stop early and turn a damaged document into a plausible fragment.
//
// When the first value never closes because the text runs out, everything
// after the opener is kept. Cutting at an inner closer there would silently
// drop the truncated tail instead of leaving it for balancing to close or
// for the parser to reject.
func isolateSpan(s string) string {
	start := firstOpener(s)
	if start < 0 {
		return s
	}
	if _, truncated := spanEnd(s, start); truncated {
		return s[start:]
	}

	end := strings.LastIndexByte(s, closerFor(s[start]))
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// stripTrailingCommas drops every comma outside string literals that is
// followed, after optional whitespace, by '}' or ']'. Runs until stable so
// that ",,]" collapses as well.
func stripTrailingCommas(s string) string {
	for {
		out := stripTrailingCommasOnce(s)
		if out == s {
			return s
		}
		s = out
	}
}

func stripTrailingCommasOnce(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	var st scanState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.step(c) && c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && isCloser(s[j]) {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripControlChars removes ASCII control bytes (0x00-0x1F and 0x7F) except
// space, tab, newline and carriage return. UTF-8 continuation bytes are all
// >= 0x80, so multi-byte characters are never touched.
func stripControlChars(s string) string {
	keep := func(c byte) bool {
		return isJSONSpace(c) || (c >= 0x20 && c != 0x7f)
	}

	clean := true
	for i := 0; i < len(s); i++ {
		if !keep(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if keep(s[i]) {
			b = append(b, s[i])
		}
	}
	return string(b)
}

// balanceBrackets appends the closers for every opener left open, innermost
// first. It only ever appends: existing characters are never removed or
// reordered, and nothing happens when no closer is missing. Text that ends
// inside a string literal is left alone because closing the string would mean
// inventing its contents.
func balanceBrackets(s string) string {
	stack, inString := unclosed(s)
	if len(stack) == 0 || inString {
		return s
	}

	closers := make([]byte, len(stack))
	for i := range stack {
		closers[i] = closerFor(stack[len(stack)-1-i])
	}
	return s + string(closers)
}
