package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var cIncludeRe = regexp.MustCompile(`(?m)^\s*#\s*include\s*[<"]([^>"]+)[>"]`)
var cAsmRe = regexp.MustCompile(`\b(asm|__asm__|__asm)\b`)

func validateCFamily(code string) (bool, string) {
	clean := stripStringsAndComments(code, false)

	for _, call := range findCalls(clean) {
		base := call
		if idx := strings.LastIndex(base, "::"); idx >= 0 {
			base = base[idx+2:]
		}
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[idx+1:]
		}
		if idx := strings.LastIndex(base, "->"); idx >= 0 {
			base = base[idx+2:]
		}
		if CBlockedCalls[base] {
			return false, fmt.Sprintf("Blocked function call: %s()", base)
		}
		for _, prefix := range CBlockedCallPrefixes {
			if strings.HasPrefix(base, prefix) {
				return false, fmt.Sprintf("Blocked function call: %s()", base)
			}
		}
	}

	for _, m := range cIncludeRe.FindAllStringSubmatch(code, -1) {
		path := m[1]
		for _, bad := range CBlockedIncludeSubstrings {
			if strings.Contains(path, bad) {
				return false, fmt.Sprintf("Blocked include: %s", path)
			}
		}
	}

	if cAsmRe.MatchString(clean) {
		return false, "Inline assembly is not permitted"
	}

	return true, ""
}
