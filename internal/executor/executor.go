// Package executor implements the executor family (spec section 4.2):
// write source, compile if needed, build a sandboxed argv. Dispatch is a
// tagged variant plus a resolver function (internal/types.Language plus
// Resolve), per the design note to avoid class-hierarchy mimicry.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/codr/codr/internal/types"
)

// Executor prepares one job's workdir and returns the argv to run under the
// sandbox.
type Executor interface {
	// Prepare validates filename, writes code into workdir, compiles if
	// the language requires it, and returns the argv to execute.
	Prepare(ctx context.Context, code, filename, workdir string, compilationTimeout time.Duration) ([]string, error)
}

var registry = map[types.Language]Executor{
	types.LanguagePython:     pythonExecutor{},
	types.LanguageJavaScript: javascriptExecutor{},
	types.LanguageC:          compiledExecutor{compiler: "gcc", flags: []string{"-std=c11", "-lm"}},
	types.LanguageCpp:        compiledExecutor{compiler: "g++", flags: []string{"-std=c++17", "-lstdc++"}},
	types.LanguageRust:       compiledExecutor{compiler: "rustc", flags: nil},
}

// Resolve returns the executor for a language. GetSupportedLanguages lists
// the same five languages this registry holds.
func Resolve(lang types.Language) (Executor, error) {
	ex, ok := registry[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return ex, nil
}

// GetSupportedLanguages is the authoritative source for which languages
// the validator and gateway accept.
func GetSupportedLanguages() []types.Language {
	return []types.Language{
		types.LanguagePython,
		types.LanguageJavaScript,
		types.LanguageC,
		types.LanguageCpp,
		types.LanguageRust,
	}
}

// IsCompiled reports whether a language goes through a compile stage.
func IsCompiled(lang types.Language) bool {
	switch lang {
	case types.LanguageC, types.LanguageCpp, types.LanguageRust:
		return true
	default:
		return false
	}
}

// DefaultFilename derives the canonical source filename for a language.
// The gateway uses it for every submission, since the submission frame
// carries no filename.
func DefaultFilename(lang types.Language) string {
	switch lang {
	case types.LanguagePython:
		return "main.py"
	case types.LanguageJavaScript:
		return "main.js"
	case types.LanguageC:
		return "main.c"
	case types.LanguageCpp:
		return "main.cpp"
	case types.LanguageRust:
		return "main.rs"
	default:
		return "main.txt"
	}
}

// CompileFailedError wraps a compiler's stderr on non-zero exit or timeout,
// surfaced to the client as a complete frame with non-zero exit per spec
// section 7.
type CompileFailedError struct {
	Stderr  string
	Timeout bool
}

func (e *CompileFailedError) Error() string {
	if e.Timeout {
		return "Compilation timed out"
	}
	return fmt.Sprintf("Compilation failed:\n%s", e.Stderr)
}
