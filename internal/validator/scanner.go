package validator

import "strings"

// stripStringsAndComments returns code with string/char literals and
// comments blanked out (replaced with spaces, preserving line structure),
// so pattern matching below operates only on executable syntax and never
// trips on a denylisted word mentioned inside a string or comment.
// hashComment selects "#"-style line comments (Python); otherwise C-style
// "//" and "/* */" are recognized.
func stripStringsAndComments(code string, hashComment bool) string {
	var out strings.Builder
	out.Grow(len(code))

	runes := []rune(code)
	n := len(runes)
	i := 0
	for i < n {
		c := runes[i]

		if hashComment && c == '#' {
			for i < n && runes[i] != '\n' {
				out.WriteRune(' ')
				i++
			}
			continue
		}
		if !hashComment && c == '/' && i+1 < n && runes[i+1] == '/' {
			for i < n && runes[i] != '\n' {
				out.WriteRune(' ')
				i++
			}
			continue
		}
		if !hashComment && c == '/' && i+1 < n && runes[i+1] == '*' {
			out.WriteString("  ")
			i += 2
			for i < n && !(runes[i] == '*' && i+1 < n && runes[i+1] == '/') {
				if runes[i] == '\n' {
					out.WriteRune('\n')
				} else {
					out.WriteRune(' ')
				}
				i++
			}
			if i < n {
				out.WriteString("  ")
				i += 2
			}
			continue
		}
		if c == '"' || c == '\'' || c == '`' {
			quote := c
			out.WriteRune(' ')
			i++
			for i < n && runes[i] != quote {
				if runes[i] == '\\' && i+1 < n {
					out.WriteRune(' ')
					i++
				}
				if runes[i] == '\n' {
					out.WriteRune('\n')
				} else {
					out.WriteRune(' ')
				}
				i++
			}
			if i < n {
				out.WriteRune(' ')
				i++
			}
			continue
		}

		out.WriteRune(c)
		i++
	}
	return out.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// findCalls returns every identifier (optionally a dotted or "::" path)
// followed by "(" in cleaned source, allowing spaces before the "(". Each
// returned entry is the full path token that precedes the call.
func findCalls(clean string) []string {
	var calls []string
	runes := []rune(clean)
	n := len(runes)
	i := 0
	for i < n {
		if !isIdentRune(runes[i]) || (runes[i] >= '0' && runes[i] <= '9') {
			i++
			continue
		}
		start := i
		for i < n && (isIdentRune(runes[i]) || runes[i] == '.' || runes[i] == ':') {
			i++
		}
		name := string(runes[start:i])
		j := i
		for j < n && runes[j] == ' ' {
			j++
		}
		if j < n && runes[j] == '(' {
			calls = append(calls, name)
		}
	}
	return calls
}

// containsWord reports whether clean contains word as a standalone token
// (not as a substring of a longer identifier).
func containsWord(clean, word string) bool {
	idx := 0
	for {
		pos := strings.Index(clean[idx:], word)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos == 0 || !isIdentRune(rune(clean[pos-1]))
		after := pos+len(word) >= len(clean) || !isIdentRune(rune(clean[pos+len(word)]))
		if before && after {
			return true
		}
		idx = pos + 1
	}
}
