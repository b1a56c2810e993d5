package executor

import (
	"context"
	"time"
)

type pythonExecutor struct{}

func (pythonExecutor) Prepare(ctx context.Context, code, filename, workdir string, _ time.Duration) ([]string, error) {
	path, err := writeSourceFile(workdir, filename, code)
	if err != nil {
		return nil, err
	}
	return []string{"python3", path}, nil
}

type javascriptExecutor struct{}

func (javascriptExecutor) Prepare(ctx context.Context, code, filename, workdir string, _ time.Duration) ([]string, error) {
	path, err := writeSourceFile(workdir, filename, code)
	if err != nil {
		return nil, err
	}
	return []string{
		"node",
		"--max-old-space-size=64",
		"--no-concurrent-recompilation",
		"--single-threaded-gc",
		path,
	}, nil
}
