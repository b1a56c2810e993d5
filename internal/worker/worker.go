// Package worker implements the worker loop (spec section 4.8 and 5): a
// dedicated process that dequeues jobs, owns the PTY runner, and publishes
// to the bus. It implements the "cross-domain concurrency bridge" design
// note (spec section 9) as two explicit channels plus a bridge goroutine,
// grounded in original_source's backend/services/worker/worker.py
// input_listener/bridge_input/on_output pattern. Go has no GIL and no
// asyncio-vs-thread split, so both tiers here are goroutines — but the
// explicit handoff shape (listener -> bridge -> runner-polled channel) is
// kept because it is what the spec's concurrency model names, and it
// keeps the listener's subscription lifetime independent of whatever the
// PTY runner is doing at any instant.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codr/codr/internal/bus"
	"github.com/codr/codr/internal/executor"
	"github.com/codr/codr/internal/jobstore"
	"github.com/codr/codr/internal/ptyrunner"
	"github.com/codr/codr/internal/sandbox"
	"github.com/codr/codr/internal/sanitize"
	"github.com/codr/codr/internal/types"
	"github.com/sirupsen/logrus"
)

// Limits configures the resource envelope applied to every job, sourced
// from configuration (spec section 6).
type Limits struct {
	RunWallSeconds      int
	RunCPUSeconds       int
	CompilationTimeout  time.Duration
	MaxMemoryMB         int
	MaxFsizeBytes       int64
}

// Worker dequeues jobs from the bus and drives each to completion.
type Worker struct {
	ID         string
	Bus        *bus.Bus
	Store      *jobstore.Store
	Sandbox    sandbox.Sandbox
	Limits     Limits
	PollTimeout time.Duration
	Logger     *logrus.Entry

	failureCount int64
}

// Run blocks consuming the work list until ctx is cancelled. It finishes
// any in-flight job before returning (graceful shutdown: stop pulling new
// jobs, but the job in flight runs to completion since the outer select
// only checks ctx between dequeues and the job runs under a context that
// ctx's cancellation does not reach).
func (w *Worker) Run(ctx context.Context) {
	w.Logger.WithField("worker_id", w.ID).Info("worker loop starting")
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker loop shutting down")
			return
		default:
		}

		entry, err := w.Bus.Dequeue(ctx, w.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.Logger.WithError(err).Warn("dequeue failed; backing off")
			time.Sleep(1 * time.Second)
			continue
		}
		if entry == nil {
			continue
		}

		latency := time.Since(entry.QueuedAt)
		logger := w.Logger.WithField("job_id", entry.JobID).WithField("queue_latency_ms", latency.Milliseconds())
		logger.Info("dequeued job")

		w.processJob(context.WithoutCancel(ctx), *entry, logger)
	}
}

// processJob drives one job to completion. A job-level fault is always
// contained here: the worker never dies from it.
func (w *Worker) processJob(ctx context.Context, entry types.JobQueueEntry, logger *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			w.failureCount++
			logger.WithField("panic", r).Error("job panicked; continuing")
			_ = w.Bus.PublishError(ctx, entry.JobID, fmt.Sprintf("Execution error: %v", r))
			_ = w.Store.MarkFailed(ctx, entry.JobID, fmt.Sprintf("%v", r), nil)
		}
	}()

	if err := w.Store.MarkProcessing(ctx, entry.JobID); err != nil {
		logger.WithError(err).Warn("failed to mark job processing")
	}

	ex, err := executor.Resolve(entry.Language)
	if err != nil {
		w.fail(ctx, entry.JobID, err.Error(), logger)
		return
	}

	workdir, err := os.MkdirTemp("", "codr-job-*")
	if err != nil {
		w.fail(ctx, entry.JobID, fmt.Sprintf("Execution error: %s", err), logger)
		return
	}
	defer os.RemoveAll(workdir)

	prepareStart := time.Now()
	argv, err := ex.Prepare(ctx, entry.Code, entry.Filename, workdir, w.Limits.CompilationTimeout)
	compileSeconds := time.Since(prepareStart).Seconds()
	if err != nil {
		if cerr, ok := err.(*executor.CompileFailedError); ok {
			diagnostic := sanitize.FormatErrorMessage(cerr.Error(), string(entry.Language), workdir)
			if pubErr := w.Bus.PublishOutput(ctx, entry.JobID, "stderr", diagnostic); pubErr != nil {
				logger.WithError(pubErr).Warn("failed to publish compile diagnostic")
			}
			result := types.ExecutionResult{Success: false, ExitCode: 1, Stderr: diagnostic}
			w.complete(ctx, entry.JobID, result, workdir, string(entry.Language), logger)
			return
		}
		w.fail(ctx, entry.JobID, err.Error(), logger)
		return
	}

	limits := sandbox.LimitsFor(entry.Language, w.Limits.RunCPUSeconds, w.Limits.RunWallSeconds, w.Limits.MaxMemoryMB, w.Limits.MaxFsizeBytes)
	wrappedArgv, err := w.Sandbox.Wrap(argv, workdir, limits)
	if err != nil {
		w.fail(ctx, entry.JobID, fmt.Sprintf("Execution error: %s", err), logger)
		return
	}

	listenerCtx, cancelListener := context.WithCancel(ctx)
	defer cancelListener()

	asyncInput := make(chan string, 64)
	go func() {
		if err := w.Bus.SubscribeInput(listenerCtx, entry.JobID, func(data string) {
			select {
			case asyncInput <- data:
			default:
				logger.Warn("input channel full; dropping keystroke payload")
			}
		}); err != nil && listenerCtx.Err() == nil {
			logger.WithError(err).Warn("input listener stopped unexpectedly")
		}
	}()

	syncInput := make(chan string, 64)
	go func() {
		for {
			select {
			case <-listenerCtx.Done():
				return
			case data := <-asyncInput:
				select {
				case syncInput <- data:
				case <-listenerCtx.Done():
					return
				}
			}
		}
	}()

	onOutput := func(chunk []byte) {
		clean := sanitize.Sanitize(string(chunk), string(entry.Language), workdir)
		if err := w.Bus.PublishOutput(ctx, entry.JobID, "stdout", clean); err != nil {
			logger.WithError(err).Warn("failed to publish output")
		}
	}

	runCtx, cancelRun := context.WithTimeout(ctx, time.Duration(w.Limits.RunWallSeconds+2)*time.Second)
	defer cancelRun()

	result, err := ptyrunner.Run(runCtx, wrappedArgv, workdir, limits, onOutput, syncInput)
	cancelListener()

	if err != nil {
		w.fail(ctx, entry.JobID, fmt.Sprintf("Execution error: %s", err), logger)
		return
	}

	if executor.IsCompiled(entry.Language) {
		result.ExecutionTime += compileSeconds
	}
	result.Stderr = sanitize.FormatErrorMessage(result.Stderr, string(entry.Language), workdir)
	w.complete(ctx, entry.JobID, result, workdir, string(entry.Language), logger)
}

func (w *Worker) complete(ctx context.Context, jobID string, result types.ExecutionResult, workdir, language string, logger *logrus.Entry) {
	if err := w.Store.MarkCompleted(ctx, jobID, result); err != nil {
		logger.WithError(err).Error("failed to record completed job")
	}

	message := ""
	if !result.Success {
		message, _ = sanitize.Summarize(result.Stderr, language)
	}

	if err := w.Bus.PublishComplete(ctx, jobID, result.ExitCode, result.ExecutionTime, message); err != nil {
		logger.WithError(err).Warn("failed to publish complete frame")
	}
}

func (w *Worker) fail(ctx context.Context, jobID, message string, logger *logrus.Entry) {
	w.failureCount++
	if err := w.Store.MarkFailed(ctx, jobID, message, nil); err != nil {
		logger.WithError(err).Error("failed to record failed job")
	}
	if err := w.Bus.PublishError(ctx, jobID, message); err != nil {
		logger.WithError(err).Warn("failed to publish error frame")
	}
}

// FailureCount returns the number of jobs that faulted since start,
// exposed for operational logging.
func (w *Worker) FailureCount() int64 {
	return w.failureCount
}
