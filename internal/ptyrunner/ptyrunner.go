// Package ptyrunner implements the PTY runner (spec section 4.3): spawn a
// process under a PTY, pump output/input, enforce a wall-clock deadline.
// Real PTY allocation is grounded in
// spencerandtheteagues-apex-build-platform's internal/execution/terminal.go
// (github.com/creack/pty) — the teacher itself has no PTY, using plain
// stdout/stderr pipes instead, so this component is new rather than
// adapted. The read/poll/grace-kill loop shape is grounded in
// original_source's backend/lib/executors/base.py's _execute_pty.
package ptyrunner

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/codr/codr/internal/types"
	"github.com/creack/pty"
)

const (
	readChunkSize  = 4096
	winsizeRows    = 24
	winsizeCols    = 80
	killGracePeriod = 500 * time.Millisecond
)

// Run spawns argv[0] with argv[1:] under a PTY in workdir, pumping output
// to onOutput and keystrokes from inputSource to the child, until the
// child exits, ctx is cancelled, or limits.WallSeconds elapses.
func Run(ctx context.Context, argv []string, workdir string, limits types.SandboxLimits, onOutput func([]byte), inputSource <-chan string) (result types.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = types.ExecutionResult{
				Success:  false,
				ExitCode: -1,
				Stdout:   result.Stdout,
				Stderr:   fmt.Sprintf("Execution error: %v", r),
			}
			err = nil
		}
	}()

	if len(argv) == 0 {
		return types.ExecutionResult{Success: false, ExitCode: -1, Stderr: "Execution error: empty argv"}, nil
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	start := time.Now()

	ptmx, startErr := pty.StartWithSize(cmd, &pty.Winsize{Rows: winsizeRows, Cols: winsizeCols})
	if startErr != nil {
		return types.ExecutionResult{
			Success:  false,
			ExitCode: -1,
			Stderr:   fmt.Sprintf("Execution error: %s", startErr),
		}, nil
	}
	defer ptmx.Close()

	wallDeadline := time.Duration(limits.WallSeconds) * time.Second
	if wallDeadline <= 0 {
		wallDeadline = 10 * time.Second
	}
	timer := time.NewTimer(wallDeadline)
	defer timer.Stop()

	outputCh := make(chan []byte, 16)
	readDone := make(chan error, 1)
	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				outputCh <- chunk
			}
			if readErr != nil {
				readDone <- readErr
				return
			}
		}
	}()

	var stdout []byte
	killedByTimeout := false

loop:
	for {
		select {
		case chunk := <-outputCh:
			onOutput(chunk)
			stdout = append(stdout, chunk...)

		case <-readDone:
			for {
				select {
				case chunk := <-outputCh:
					onOutput(chunk)
					stdout = append(stdout, chunk...)
					continue
				default:
				}
				break
			}
			break loop

		case data, ok := <-inputSource:
			if ok {
				_, _ = ptmx.Write([]byte(data))
			}

		case <-timer.C:
			killedByTimeout = true
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}

		case <-ctx.Done():
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		}
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-time.After(killGracePeriod):
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		waitErr = <-waitDone
	}

	executionTime := time.Since(start).Seconds()

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	if killedByTimeout && exitCode == 0 {
		exitCode = -1
	}

	return types.ExecutionResult{
		Success:       exitCode == 0,
		ExitCode:      exitCode,
		ExecutionTime: executionTime,
		Stdout:        string(stdout),
		Stderr:        "",
	}, nil
}
