package parse

import "strings"

// scanState tracks whether a byte-wise walk over JSON-ish text is inside a
// string literal. Only double quotes delimit strings; backslash escapes the
// next byte inside a string.
type scanState struct {
	inString bool
	escaped  bool
}

// step advances over c and reports whether c is structural: outside every
// string literal and not itself a quote.
func (s *scanState) step(c byte) bool {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}
		return false
	}
	if c == '"' {
		s.inString = true
		return false
	}
	return true
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}

func isOpener(c byte) bool {
	return c == '{' || c == '['
}

func isCloser(c byte) bool {
	return c == '}' || c == ']'
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// firstOpener returns the index of the first '{' or '[' outside a string
// literal. When the quote tracking finds none (an odd quote in leading prose)
// it falls back to the first opener anywhere.
func firstOpener(s string) int {
	var st scanState
	for i := 0; i < len(s); i++ {
		if st.step(s[i]) && isOpener(s[i]) {
			return i
		}
	}
	return strings.IndexAny(s, "{[")
}

// unclosed walks s and returns the stack of openers still waiting for their
// closer, outermost first. Closers that do not match the innermost opener are
// ignored. inString is true when s ends inside a string literal.
func unclosed(s string) (stack []byte, inString bool) {
	var st scanState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !st.step(c) {
			continue
		}
		switch {
		case isOpener(c):
			stack = append(stack, c)
		case isCloser(c):
			if n := len(stack); n > 0 && closerFor(stack[n-1]) == c {
				stack = stack[:n-1]
			}
		}
	}
	return stack, st.inString
}

// balancedSpan finds the first opener at or after from and returns the end
// index of its matching closer. ok is false when no opener exists or the value
// never closes cleanly (truncated, or a closer of the wrong kind).
func balancedSpan(s string, from int) (start, end int, ok bool) {
	idx := strings.IndexAny(s[from:], "{[")
	if idx < 0 {
		return -1, -1, false
	}
	start = from + idx

	end, _ = spanEnd(s, start)
	if end < 0 {
		return start, -1, false
	}
	return start, end, true
}

// spanEnd walks the value opened at s[start] and returns the index of its
// matching closer. When there is none, end is -1 and truncated reports
// whether the text simply ran out (as opposed to hitting a closer of the
// wrong kind).
func spanEnd(s string, start int) (end int, truncated bool) {
	var st scanState
	var stack []byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if !st.step(c) {
			continue
		}
		switch {
		case isOpener(c):
			stack = append(stack, c)
		case isCloser(c):
			n := len(stack)
			if n == 0 || closerFor(stack[n-1]) != c {
				return -1, false
			}
			stack = stack[:n-1]
			if len(stack) == 0 {
				return i, false
			}
		}
	}
	return -1, true
}
