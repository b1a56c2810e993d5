package sandbox

import "github.com/codr/codr/internal/types"

// NullSandbox passes argv through unchanged. It is acceptable for CI per
// the "sandbox abstraction" design note, as long as tests asserting
// containment are marked and skipped against it.
type NullSandbox struct{}

func (NullSandbox) Wrap(argv []string, workdir string, limits types.SandboxLimits) ([]string, error) {
	return argv, nil
}
