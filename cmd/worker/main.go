// Command worker runs one worker process (spec section 4.8): it dequeues
// jobs from the bus, drives them through the sandboxed executor and PTY
// runner, and publishes output back onto the bus. Several workers run
// concurrently against the same Redis-backed queue and bus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codr/codr/internal/bus"
	"github.com/codr/codr/internal/config"
	"github.com/codr/codr/internal/jobstore"
	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/sandbox"
	"github.com/codr/codr/internal/worker"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logrus.New()
	logger.SetLevel(cfg.GetLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = uuid.New().String()
	}
	log := logger.WithField("worker_id", workerID)
	log.Info("Starting codr worker")

	redisClient, err := redisconn.NewClient(cfg.RedisURL, log.WithField("component", "redis"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to redis")
	}
	defer redisClient.Close()

	messageBus := bus.New(redisClient, cfg.JobQueueName)
	store := jobstore.New(redisClient, time.Duration(cfg.RedisTTL)*time.Second)

	box := sandboxFor(cfg, log)

	w := &worker.Worker{
		ID:      workerID,
		Bus:     messageBus,
		Store:   store,
		Sandbox: box,
		Limits: worker.Limits{
			RunWallSeconds:     cfg.ExecutionTimeoutS,
			RunCPUSeconds:      cfg.ExecutionTimeoutS,
			CompilationTimeout: time.Duration(cfg.CompilationTimeoutS) * time.Second,
			MaxMemoryMB:        cfg.MaxMemoryMB,
			MaxFsizeBytes:      int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		},
		PollTimeout: time.Duration(cfg.WorkerPollTimeout) * time.Second,
		Logger:      log,
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker; finishing in-flight job")
	cancel()
	<-done
	log.WithField("failures", w.FailureCount()).Info("Worker exited")
}

// sandboxFor selects the isolate sandbox when its launcher binary is
// present on the host, falling back to the pass-through sandbox otherwise
// (containers without isolate installed, local development, CI).
func sandboxFor(cfg *config.Config, log *logrus.Entry) sandbox.Sandbox {
	if _, err := os.Stat(sandbox.IsolatePath); err == nil {
		log.Info("using isolate sandbox")
		return sandbox.NewIsolateBox()
	}
	log.Warn("isolate binary not found; falling back to null sandbox (unsandboxed execution)")
	return sandbox.NullSandbox{}
}
