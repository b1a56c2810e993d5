package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][A-Za-z0-9_.]*)`)
	pyFromImportRe = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][A-Za-z0-9_.]*)\s+import`)
	pyAttributeRe  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\.\s*([A-Za-z_][A-Za-z0-9_]*)`)
	pySubscriptRe  = regexp.MustCompile(`\b(__[A-Za-z0-9_]+__)\s*\[`)
)

func validatePython(code string) (bool, string) {
	clean := stripStringsAndComments(code, true)

	for _, call := range findCalls(clean) {
		if strings.Contains(call, ".") {
			continue
		}
		if PythonBlockedOperations[call] {
			return false, fmt.Sprintf("Blocked operation: %s()", call)
		}
	}

	for _, m := range pyImportRe.FindAllStringSubmatch(clean, -1) {
		module := strings.SplitN(m[1], ".", 2)[0]
		if PythonBlockedModules[module] {
			return false, fmt.Sprintf("Blocked module: %s", module)
		}
	}
	for _, m := range pyFromImportRe.FindAllStringSubmatch(clean, -1) {
		module := strings.SplitN(m[1], ".", 2)[0]
		if PythonBlockedModules[module] {
			return false, fmt.Sprintf("Blocked module: %s", module)
		}
	}

	for _, m := range pyAttributeRe.FindAllStringSubmatch(clean, -1) {
		base, attr := m[1], m[2]
		if PythonBlockedModules[base] {
			return false, fmt.Sprintf("Access to blocked module: %s", base)
		}
		if isDunder(base) {
			return false, fmt.Sprintf("Access to dunder variable: %s", base)
		}
		if isDunder(attr) && !PythonSafeDunders[attr] {
			return false, fmt.Sprintf("Access to restricted attribute: %s", attr)
		}
	}

	if pySubscriptRe.MatchString(clean) {
		m := pySubscriptRe.FindStringSubmatch(clean)
		return false, fmt.Sprintf("Subscript access to dunder variable: %s", m[1])
	}

	if containsWord(clean, "compile") {
		return false, "Blocked operation: compile"
	}

	return true, ""
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}
