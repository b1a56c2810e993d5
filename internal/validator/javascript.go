package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	jsImportRe      = regexp.MustCompile(`(?m)^\s*import\s+.*\sfrom\s+['"]([^'"]+)['"]`)
	jsRequireRe     = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsConstructorRe = regexp.MustCompile(`\bconstructor\b`)
)

func validateJavaScript(code string) (bool, string) {
	clean := stripStringsAndComments(code, false)

	for _, call := range findCalls(clean) {
		base := call
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[idx+1:]
		}
		if JSBlockedCalls[base] {
			return false, fmt.Sprintf("Blocked operation: %s()", base)
		}
	}

	for _, m := range jsImportRe.FindAllStringSubmatch(code, -1) {
		mod := strings.TrimPrefix(m[1], "node:")
		if JSBlockedModules[mod] {
			return false, fmt.Sprintf("Blocked module import: %s", mod)
		}
	}
	for _, m := range jsRequireRe.FindAllStringSubmatch(code, -1) {
		mod := strings.TrimPrefix(m[1], "node:")
		if JSBlockedModules[mod] {
			return false, fmt.Sprintf("Blocked module: %s", mod)
		}
	}

	for _, pattern := range JSMemberPatterns {
		if strings.Contains(clean, pattern) {
			return false, fmt.Sprintf("Blocked access pattern: %s", pattern)
		}
	}

	if jsConstructorRe.MatchString(clean) {
		return false, "Blocked access to constructor"
	}

	return true, ""
}
