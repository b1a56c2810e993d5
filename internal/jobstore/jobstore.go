// Package jobstore implements the job store (spec section 4.4): durable
// per-job metadata with TTL, addressed by job:{id}. Grounded in
// original_source's backend/lib/services/job_service.py, including its
// pipelined terminal-status writes so observers never see a terminal
// status without its payload.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/types"
	"github.com/google/uuid"
)

// Store is the job store, backed by Redis hashes.
type Store struct {
	client *redisconn.Client
	ttl    time.Duration
}

// New constructs a Store with the given record TTL (default 1 hour per
// spec section 3).
func New(client *redisconn.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

// Create mints a job id and writes the initial queued record.
func (s *Store) Create(ctx context.Context, code string, language types.Language, filename string) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	job := types.Job{
		ID:        id,
		Code:      code,
		Language:  language,
		Filename:  filename,
		Status:    types.JobStatusQueued,
		CreatedAt: now,
	}

	fields := map[string]interface{}{
		"id":         job.ID,
		"code":       job.Code,
		"language":   string(job.Language),
		"filename":   job.Filename,
		"status":     string(job.Status),
		"created_at": job.CreatedAt.Format(time.RFC3339Nano),
	}

	rdb := s.client.Raw()
	if err := rdb.HSet(ctx, jobKey(id), fields).Err(); err != nil {
		return "", fmt.Errorf("jobstore: create: %w", err)
	}
	if err := rdb.Expire(ctx, jobKey(id), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("jobstore: set ttl: %w", err)
	}
	return id, nil
}

// Get loads a job's full record.
func (s *Store) Get(ctx context.Context, jobID string) (*types.Job, error) {
	m, err := s.client.Raw().HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("jobstore: get: %w", err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("jobstore: job not found: %s", jobID)
	}

	job := &types.Job{
		ID:       m["id"],
		Code:     m["code"],
		Language: types.Language(m["language"]),
		Filename: m["filename"],
		Status:   types.JobStatus(m["status"]),
		Error:    m["error"],
	}
	if v, ok := m["created_at"]; ok {
		job.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := m["completed_at"]; ok && v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			job.CompletedAt = &t
		}
	}
	if v, ok := m["result"]; ok && v != "" {
		var result types.ExecutionResult
		if err := json.Unmarshal([]byte(v), &result); err == nil {
			job.Result = &result
		}
	}
	return job, nil
}

// MarkProcessing advances status from queued to processing.
func (s *Store) MarkProcessing(ctx context.Context, jobID string) error {
	return s.client.Raw().HSet(ctx, jobKey(jobID), "status", string(types.JobStatusProcessing)).Err()
}

// MarkCompleted writes the terminal "completed" status together with its
// result and timestamp in a single pipelined batch, so no observer can see
// a terminal status without the payload that explains it.
func (s *Store) MarkCompleted(ctx context.Context, jobID string, result types.ExecutionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("jobstore: marshal result: %w", err)
	}

	pipe := s.client.Raw().TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), map[string]interface{}{
		"result":       string(payload),
		"status":       string(types.JobStatusCompleted),
		"completed_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, jobKey(jobID), s.ttl)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("jobstore: mark completed: %w", err)
	}
	return nil
}

// MarkFailed writes the terminal "failed" status together with its error
// message (and an optional partial result) atomically.
func (s *Store) MarkFailed(ctx context.Context, jobID string, errMsg string, result *types.ExecutionResult) error {
	fields := map[string]interface{}{
		"error":        errMsg,
		"status":       string(types.JobStatusFailed),
		"completed_at": time.Now().Format(time.RFC3339Nano),
	}
	if result != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("jobstore: marshal result: %w", err)
		}
		fields["result"] = string(payload)
	}

	pipe := s.client.Raw().TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), fields)
	pipe.Expire(ctx, jobKey(jobID), s.ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("jobstore: mark failed: %w", err)
	}
	return nil
}

// Exists reports whether a job record is present.
func (s *Store) Exists(ctx context.Context, jobID string) (bool, error) {
	n, err := s.client.Raw().Exists(ctx, jobKey(jobID)).Result()
	if err != nil {
		return false, fmt.Errorf("jobstore: exists: %w", err)
	}
	return n > 0, nil
}

// Status returns just the status field, cheaper than a full Get.
func (s *Store) Status(ctx context.Context, jobID string) (types.JobStatus, error) {
	v, err := s.client.Raw().HGet(ctx, jobKey(jobID), "status").Result()
	if err != nil {
		return "", fmt.Errorf("jobstore: status: %w", err)
	}
	return types.JobStatus(v), nil
}
