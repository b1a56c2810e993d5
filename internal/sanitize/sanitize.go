// Package sanitize implements the output sanitizer (spec section 4.9),
// grounded line-for-line in original_source's
// backend/lib/utils/output_formatter.py: strip ANSI, redact workdir and
// temp-root paths, trim framework-internal stack trace lines, collapse
// excess blank lines.
package sanitize

import (
	"regexp"
	"strings"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m|\[[0-9;]+m`)

var tempRootPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/private/var/folders/[^/]+/[^/]+/[^/]+/[^/]+/`),
	regexp.MustCompile(`/var/folders/[^/]+/[^/]+/[^/]+/[^/]+/`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// StripANSI removes ANSI CSI escape sequences.
func StripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}

// CleanFilePaths replaces the job's absolute workdir prefix, and common
// temp-root path patterns, with nothing, leaving just the trailing
// basename.
func CleanFilePaths(text, workdir string) string {
	if workdir != "" {
		text = strings.ReplaceAll(text, workdir+"/", "")
		text = strings.ReplaceAll(text, workdir, "")
	}
	for _, p := range tempRootPatterns {
		text = p.ReplaceAllString(text, "")
	}
	return text
}

var jsSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`at Module\._compile`),
	regexp.MustCompile(`at Object\.\.js`),
	regexp.MustCompile(`at Module\.load`),
	regexp.MustCompile(`at Function\._load`),
	regexp.MustCompile(`at TracingChannel`),
	regexp.MustCompile(`at wrapModuleLoad`),
	regexp.MustCompile(`at Function\.executeUserEntryPoint`),
	regexp.MustCompile(`at node:internal`),
	regexp.MustCompile(`Node\.js v\d+\.`),
}

var pySkipPattern = regexp.MustCompile(`File.*site-packages`)

// FilterStackTrace drops framework-internal trace lines, matching the
// fixed per-language skip-pattern lists. Languages other than javascript
// and python are returned unchanged.
func FilterStackTrace(text, language string) string {
	lines := strings.Split(text, "\n")
	var out []string

	switch language {
	case "javascript":
		for _, line := range lines {
			skip := false
			for _, p := range jsSkipPatterns {
				if p.MatchString(line) {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
			if strings.TrimSpace(line) != "" || len(out) > 0 {
				out = append(out, line)
			}
		}
	case "python":
		for _, line := range lines {
			if strings.HasPrefix(line, "Traceback") {
				out = append(out, line)
				continue
			}
			if pySkipPattern.MatchString(line) {
				continue
			}
			out = append(out, line)
		}
	default:
		return text
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// FormatErrorMessage runs the full pipeline: strip ANSI, redact paths,
// filter stack trace lines, collapse blank runs, trim.
func FormatErrorMessage(text, language, workdir string) string {
	text = StripANSI(text)
	text = CleanFilePaths(text, workdir)
	text = FilterStackTrace(text, language)
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Sanitize applies FormatErrorMessage when chunk looks like error output
// (heuristically identified by containing "Error:", "Traceback", or
// "Exception"), otherwise only strips ANSI and redacts paths. Sanitizer
// failures fall back to the raw bytes per spec section 4.9: Sanitize
// recovers from any panic in the pipeline and returns chunk unchanged.
func Sanitize(chunk, language, workdir string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = chunk
		}
	}()

	if looksLikeError(chunk) {
		return FormatErrorMessage(chunk, language, workdir)
	}
	chunk = StripANSI(chunk)
	chunk = CleanFilePaths(chunk, workdir)
	return chunk
}

func looksLikeError(text string) bool {
	return strings.Contains(text, "Error:") ||
		strings.Contains(text, "Traceback") ||
		strings.Contains(text, "Exception")
}

// Summarize restores original_source's extract_error_summary: a short
// one-line disposition plus the full text, used to populate an ambient
// `message` field on complete frames of unsuccessful runs.
func Summarize(text, language string) (summary, full string) {
	lines := strings.Split(text, "\n")

	switch language {
	case "javascript":
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.Contains(line, "Error:") && !strings.HasPrefix(trimmed, "at") {
				summary = trimmed
				break
			}
		}
	case "python":
		for i, line := range lines {
			if i > 0 && strings.Contains(line, ":") && !strings.HasPrefix(line, " ") {
				summary = strings.TrimSpace(line)
				break
			}
		}
	}

	if summary == "" {
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				summary = strings.TrimSpace(line)
				break
			}
		}
	}
	if summary == "" {
		summary = "Error"
	}
	return summary, text
}
