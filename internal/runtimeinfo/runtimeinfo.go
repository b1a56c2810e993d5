// Package runtimeinfo provides the static RuntimeInfo registry backing
// GET /api/runtimes, restored from the teacher's dynamic package/runtime
// concept (internal/runtime) but reduced to a fixed descriptor per
// supported language, since this system has no per-language package
// installation step the way the teacher's Piston-style service does.
package runtimeinfo

import (
	"github.com/Masterminds/semver/v3"
	"github.com/codr/codr/internal/executor"
	"github.com/codr/codr/internal/types"
)

var versions = map[types.Language]string{
	types.LanguagePython:     "3.11.0",
	types.LanguageJavaScript: "20.0.0",
	types.LanguageC:          "11.0.0",
	types.LanguageCpp:        "17.0.0",
	types.LanguageRust:       "1.75.0",
}

// List returns the static RuntimeInfo descriptors for every supported
// language, sorted in executor.GetSupportedLanguages order.
func List() []types.RuntimeInfo {
	langs := executor.GetSupportedLanguages()
	out := make([]types.RuntimeInfo, 0, len(langs))
	for _, lang := range langs {
		v := versions[lang]
		// Validate the reported version parses as semver; a malformed
		// entry here is a programming error, not a runtime condition.
		if _, err := semver.NewVersion(v); err != nil {
			continue
		}
		out = append(out, types.RuntimeInfo{
			Language: lang,
			Version:  v,
			Compiled: executor.IsCompiled(lang),
		})
	}
	return out
}
