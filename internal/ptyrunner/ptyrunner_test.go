package ptyrunner

import (
	"context"
	"strings"
	"testing"

	"github.com/codr/codr/internal/types"
)

func TestRunCapturesStdoutAndExitCode(t *testing.T) {
	var captured []byte
	onOutput := func(chunk []byte) { captured = append(captured, chunk...) }

	result, err := Run(context.Background(), []string{"/bin/echo", "hello"}, "/tmp", types.SandboxLimits{WallSeconds: 5}, onOutput, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.ExitCode != 0 {
		t.Fatalf("expected successful exit, got %+v", result)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Fatalf("expected stdout to contain hello, got %q", result.Stdout)
	}
	if !strings.Contains(string(captured), "hello") {
		t.Fatalf("expected onOutput to have streamed the output, got %q", captured)
	}
}

func TestRunReportsNonZeroExitCode(t *testing.T) {
	result, err := Run(context.Background(), []string{"/bin/sh", "-c", "exit 3"}, "/tmp", types.SandboxLimits{WallSeconds: 5}, func([]byte) {}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for non-zero exit")
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestRunForwardsInputToChild(t *testing.T) {
	input := make(chan string, 1)
	input <- "ping\n"

	result, err := Run(context.Background(), []string{"/bin/sh", "-c", "read line; echo \"got: $line\""}, "/tmp", types.SandboxLimits{WallSeconds: 5}, func([]byte) {}, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "got: ping") {
		t.Fatalf("expected forwarded input to be echoed back, got %q", result.Stdout)
	}
}

func TestRunRejectsEmptyArgv(t *testing.T) {
	result, err := Run(context.Background(), nil, "/tmp", types.SandboxLimits{}, func([]byte) {}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.ExitCode != -1 {
		t.Fatalf("expected a failed result for empty argv, got %+v", result)
	}
}

func TestRunKillsOnWallTimeout(t *testing.T) {
	result, err := Run(context.Background(), []string{"/bin/sh", "-c", "sleep 30"}, "/tmp", types.SandboxLimits{WallSeconds: 1}, func([]byte) {}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected the wall-clock timeout to kill the child and report failure")
	}
}
