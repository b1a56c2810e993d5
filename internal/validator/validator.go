package validator

import (
	"fmt"

	"github.com/codr/codr/internal/types"
)

// Validate rejects code that trips a per-language denylist. It fails
// closed: an unsupported language is always rejected. The validator is
// advisory; the sandbox remains the authoritative boundary (spec section
// 4.1).
func Validate(code string, lang types.Language) (bool, string) {
	switch lang {
	case types.LanguagePython:
		return validatePython(code)
	case types.LanguageJavaScript:
		return validateJavaScript(code)
	case types.LanguageC, types.LanguageCpp:
		return validateCFamily(code)
	case types.LanguageRust:
		return validateRust(code)
	default:
		return false, fmt.Sprintf("unsupported language: %s", lang)
	}
}
