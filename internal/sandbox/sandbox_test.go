package sandbox

import (
	"testing"

	"github.com/codr/codr/internal/types"
)

func TestPolicyForKnownLanguages(t *testing.T) {
	if !PolicyFor(types.LanguagePython).AddressSpaceLimited {
		t.Error("expected python to be address-space limited")
	}
	if PolicyFor(types.LanguageJavaScript).AddressSpaceLimited {
		t.Error("expected javascript to not be address-space limited")
	}
}

func TestPolicyForUnknownLanguageDefaultsLimited(t *testing.T) {
	if !PolicyFor(types.Language("cobol")).AddressSpaceLimited {
		t.Error("expected unknown language to default to address-space limited")
	}
}

func TestLimitsForSetsAddressSpaceWhenPolicyLimited(t *testing.T) {
	limits := LimitsFor(types.LanguagePython, 5, 10, 256, 1024)
	if limits.AddressSpaceBytes == nil {
		t.Fatal("expected address space bytes to be set for python")
	}
	if *limits.AddressSpaceBytes != 256*1024*1024 {
		t.Errorf("expected 256MB in bytes, got %d", *limits.AddressSpaceBytes)
	}
	if limits.CPUSeconds != 5 || limits.WallSeconds != 10 || limits.MaxFsizeBytes != 1024 {
		t.Error("expected cpu/wall/fsize limits to be carried through unchanged")
	}
	if limits.Network || limits.IPC {
		t.Error("expected network and ipc to be disabled")
	}
}

func TestLimitsForOmitsAddressSpaceWhenPolicyUnlimited(t *testing.T) {
	limits := LimitsFor(types.LanguageJavaScript, 5, 10, 256, 1024)
	if limits.AddressSpaceBytes != nil {
		t.Error("expected no address space limit for javascript")
	}
}

func TestNullSandboxPassesThroughArgv(t *testing.T) {
	argv := []string{"python3", "main.py"}
	out, err := NullSandbox{}.Wrap(argv, "/tmp/job", types.SandboxLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(argv) {
		t.Fatalf("expected argv passed through unchanged, got %v", out)
	}
	for i := range argv {
		if out[i] != argv[i] {
			t.Fatalf("expected %v, got %v", argv, out)
		}
	}
}

func TestIsolateSandboxWrapRejectsEmptyArgv(t *testing.T) {
	box := NewIsolateBox()
	if _, err := box.Wrap(nil, "/tmp/job", types.SandboxLimits{}); err == nil {
		t.Fatal("expected an error for empty argv")
	}
}

func TestIsolateSandboxWrapBuildsExpectedFlags(t *testing.T) {
	box := &IsolateSandbox{BoxID: 7}
	mem := int64(128 * 1024 * 1024)
	limits := types.SandboxLimits{
		CPUSeconds:        5,
		WallSeconds:       10,
		MaxFsizeBytes:     2000,
		AddressSpaceBytes: &mem,
	}
	argv, err := box.Wrap([]string{"python3", "main.py"}, "/tmp/job", limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if argv[0] != IsolatePath {
		t.Fatalf("expected isolate path as argv[0], got %q", argv[0])
	}
	joined := argvString(argv)
	for _, want := range []string{"-b7", "--cg", "--fsize=2", "--wall-time=10", "--time=5", "--cg-mem=131072", "python3", "main.py"} {
		if !argvContains(joined, want) {
			t.Errorf("expected generated argv to contain %q, got %v", want, argv)
		}
	}
}

func TestIsolateSandboxWrapOmitsNetworkFlagByDefault(t *testing.T) {
	box := &IsolateSandbox{BoxID: 1}
	argv, err := box.Wrap([]string{"echo"}, "/tmp/job", types.SandboxLimits{Network: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if argvContains(argvString(argv), "--share-net") {
		t.Error("expected --share-net to be omitted when Network is false")
	}
}

func TestIsolateSandboxWrapIncludesNetworkFlagWhenEnabled(t *testing.T) {
	box := &IsolateSandbox{BoxID: 1}
	argv, err := box.Wrap([]string{"echo"}, "/tmp/job", types.SandboxLimits{Network: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !argvContains(argvString(argv), "--share-net") {
		t.Error("expected --share-net to be present when Network is true")
	}
}

func argvString(argv []string) string {
	out := ""
	for _, a := range argv {
		out += a + " "
	}
	return out
}

func argvContains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
