package sandbox

import "github.com/codr/codr/internal/types"

// Sandbox is the abstract capability the executors and PTY runner consume.
// The sandbox technology itself is out of scope for this repository; wrap
// only rewrites argv into an invocation that enforces limits, disables
// network/IPC, and isolates the process group.
type Sandbox interface {
	Wrap(argv []string, workdir string, limits types.SandboxLimits) ([]string, error)
}
