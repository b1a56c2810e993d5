package executor

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"time"
)

// compiledExecutor covers C, C++, and Rust: write source, invoke the
// configured compiler with a deadline, run the resulting binary. Grounded
// in original_source's compiled_base.py CompiledExecutor, generalized here
// over compiler/flags instead of an abstract method per subclass.
type compiledExecutor struct {
	compiler string
	flags    []string
}

func (c compiledExecutor) Prepare(ctx context.Context, code, filename, workdir string, compilationTimeout time.Duration) ([]string, error) {
	path, err := writeSourceFile(workdir, filename, code)
	if err != nil {
		return nil, err
	}

	binPath := filepath.Join(workdir, "program")

	compileCtx, cancel := context.WithTimeout(ctx, compilationTimeout)
	defer cancel()

	args := append([]string{path, "-o", binPath}, c.flags...)
	cmd := exec.CommandContext(compileCtx, c.compiler, args...)
	cmd.Dir = workdir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if compileCtx.Err() == context.DeadlineExceeded {
		return nil, &CompileFailedError{Timeout: true}
	}
	if err != nil {
		return nil, &CompileFailedError{Stderr: stderr.String()}
	}

	return []string{binPath}, nil
}
