// Package sandbox provides the abstract Sandbox.wrap(argv, workdir, limits)
// capability the executors and PTY runner depend on. The sandbox technology
// itself is out of scope (spec section 1); this package only models the
// policy of which limits apply per language and exposes a Wrap function
// whose concrete implementation is swappable (the isolate launcher for
// production, a null sandbox for CI).
package sandbox

import "github.com/codr/codr/internal/types"

// Policy captures per-language sandbox behavior as data, not as a
// conditional inside the wrapping function. JavaScript's V8 heap needs more
// address space than the rlimit applied to every other language, so it is
// the one language with AddressSpaceLimited=false.
type Policy struct {
	AddressSpaceLimited bool
}

var policies = map[types.Language]Policy{
	types.LanguagePython:     {AddressSpaceLimited: true},
	types.LanguageJavaScript: {AddressSpaceLimited: false},
	types.LanguageC:          {AddressSpaceLimited: true},
	types.LanguageCpp:        {AddressSpaceLimited: true},
	types.LanguageRust:       {AddressSpaceLimited: true},
}

// PolicyFor returns the sandbox policy for a language, defaulting to
// address-space-limited for any language not explicitly listed.
func PolicyFor(lang types.Language) Policy {
	if p, ok := policies[lang]; ok {
		return p
	}
	return Policy{AddressSpaceLimited: true}
}

// LimitsFor builds the SandboxLimits for one job invocation, applying the
// per-language policy to decide whether AddressSpaceBytes is populated.
func LimitsFor(lang types.Language, cpuSeconds, wallSeconds int, maxMemoryMB int, maxFsizeBytes int64) types.SandboxLimits {
	limits := types.SandboxLimits{
		CPUSeconds:    cpuSeconds,
		WallSeconds:   wallSeconds,
		MaxFsizeBytes: maxFsizeBytes,
		Network:       false,
		IPC:           false,
	}
	if PolicyFor(lang).AddressSpaceLimited {
		bytes := int64(maxMemoryMB) * 1024 * 1024
		limits.AddressSpaceBytes = &bytes
	}
	return limits
}
