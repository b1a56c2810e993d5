package sandbox

import (
	"fmt"
	"sync/atomic"

	"github.com/codr/codr/internal/types"
)

// IsolatePath is the external isolate launcher invoked by IsolateSandbox,
// grounded in the teacher's own use of isolate as its concrete sandbox.
const IsolatePath = "/usr/local/bin/isolate"

// MaxBoxID bounds the isolate box id space; ids are recycled modulo this.
const MaxBoxID = 999

var boxIDCounter int32

// IsolateSandbox wraps argv for the isolate sandbox launcher
// (`--rlimit-*`-equivalent flags, `--net=none` via omission of
// `--share-net`, cgroup-based memory accounting). It is one implementation
// of the Sandbox capability; a NullSandbox stands in for CI.
type IsolateSandbox struct {
	BoxID int
}

// NewIsolateBox allocates the next isolate box id.
func NewIsolateBox() *IsolateSandbox {
	id := int(atomic.AddInt32(&boxIDCounter, 1) % MaxBoxID)
	return &IsolateSandbox{BoxID: id}
}

// Wrap builds the isolate invocation enforcing limits, matching the
// teacher's safeCall argument construction.
func (s *IsolateSandbox) Wrap(argv []string, workdir string, limits types.SandboxLimits) ([]string, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("sandbox: empty argv")
	}

	args := []string{
		"--run",
		fmt.Sprintf("-b%d", s.BoxID),
		"--cg",
		"-s",
		"-d", "/etc:noexec",
		fmt.Sprintf("--dir=%s", workdir),
		"-E", "HOME=/tmp",
	}

	args = append(args, fmt.Sprintf("--fsize=%d", limits.MaxFsizeBytes/1000))

	args = append(args, fmt.Sprintf("--wall-time=%d", limits.WallSeconds))
	args = append(args, fmt.Sprintf("--time=%d", limits.CPUSeconds))
	args = append(args, "--extra-time=0")

	if limits.AddressSpaceBytes != nil {
		args = append(args, fmt.Sprintf("--cg-mem=%d", *limits.AddressSpaceBytes/1024))
	}

	if limits.Network {
		args = append(args, "--share-net")
	}

	args = append(args, "--")
	args = append(args, argv...)

	return append([]string{IsolatePath}, args...), nil
}
