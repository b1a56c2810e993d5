package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rustUseRe    = regexp.MustCompile(`(?m)^\s*use\s+([A-Za-z_][A-Za-z0-9_:]*)`)
	rustUnsafeRe = regexp.MustCompile(`\bunsafe\b`)
	rustExternRe = regexp.MustCompile(`\bextern\b`)
	rustAttrRe   = regexp.MustCompile(`#!?\[[^\]]*\]`)
)

func validateRust(code string) (bool, string) {
	clean := stripStringsAndComments(code, false)

	for _, m := range rustUseRe.FindAllStringSubmatch(clean, -1) {
		path := m[1]
		for _, prefix := range RustBlockedUsePrefixes {
			if strings.HasPrefix(path, prefix) {
				return false, fmt.Sprintf("Blocked use path: %s", path)
			}
		}
	}

	if rustUnsafeRe.MatchString(clean) {
		return false, "unsafe code is not permitted"
	}

	if rustExternRe.MatchString(clean) {
		return false, "extern blocks/functions are not permitted"
	}

	for _, attr := range rustAttrRe.FindAllString(clean, -1) {
		if strings.Contains(attr, "no_mangle") || strings.Contains(attr, "link") {
			return false, fmt.Sprintf("Blocked attribute: %s", attr)
		}
	}

	return true, ""
}
