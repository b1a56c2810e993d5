// Package types holds the wire and domain structures shared across the
// gateway, worker, job store, bus, and token service.
package types

import "time"

// Language is a tagged variant over the five supported runtimes, per the
// "dynamic dispatch over executors" design note: a resolver function picks
// an Executor by Language, never a class-hierarchy switch.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageRust       Language = "rust"
)

// JobStatus is the status field of a Job record. It advances only
// queued -> processing -> (completed | failed) and never revisits a prior
// state.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the durable per-job metadata record owned by the job store.
type Job struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Language    Language   `json:"language"`
	Filename    string     `json:"filename"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      *ExecutionResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ExecutionResult is the outcome of running a job's program to completion.
// Success iff ExitCode == 0. ExecutionTime is wall-clock from fork to reap,
// including compilation wait when applicable.
type ExecutionResult struct {
	Success       bool    `json:"success"`
	ExitCode      int     `json:"exit_code"`
	ExecutionTime float64 `json:"execution_time"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
}

// JobTokenClaims are the JWT claims minted and verified by the token
// service. Jti is the single-use redemption key.
type JobTokenClaims struct {
	JobID string `json:"job_id"`
	Jti   string `json:"jti"`
}

// MintedToken is returned by the token service on mint.
type MintedToken struct {
	JobID     string    `json:"job_id"`
	Token     string    `json:"job_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JobQueueEntry is the envelope pushed onto the FIFO work list. Ownership
// transfers from gateway to exactly one worker on pop.
type JobQueueEntry struct {
	JobID    string   `json:"job_id"`
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Filename string   `json:"filename"`
	QueuedAt time.Time `json:"queued_at"`
}

// BusMessageType discriminates payloads carried on a job's bus channels.
type BusMessageType string

const (
	BusMessageOutput   BusMessageType = "output"
	BusMessageComplete BusMessageType = "complete"
	BusMessageError    BusMessageType = "error"
)

// BusMessage is the self-delimited JSON object published to a job's output
// or complete channel.
type BusMessage struct {
	Type          BusMessageType `json:"type"`
	Stream        string         `json:"stream,omitempty"`
	Data          string         `json:"data,omitempty"`
	ExitCode      int            `json:"exit_code,omitempty"`
	ExecutionTime float64        `json:"execution_time,omitempty"`
	Message       string         `json:"message,omitempty"`
}

// WSMessage is the wire shape of every frame exchanged over /ws/execute, in
// either direction.
type WSMessage struct {
	Type          string   `json:"type,omitempty"`
	JobID         string   `json:"job_id,omitempty"`
	JobToken      string   `json:"job_token,omitempty"`
	Code          string   `json:"code,omitempty"`
	Language      Language `json:"language,omitempty"`
	Data          string   `json:"data,omitempty"`
	Stream        string   `json:"stream,omitempty"`
	ExitCode      *int     `json:"exit_code,omitempty"`
	ExecutionTime float64  `json:"execution_time,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// SandboxLimits bounds one executor invocation. AddressSpaceBytes is a
// pointer so the per-language policy table (see internal/sandbox) can omit
// it for languages that need more address-space headroom than the rlimit
// applied to the rest.
type SandboxLimits struct {
	CPUSeconds        int
	WallSeconds       int
	AddressSpaceBytes *int64
	MaxFsizeBytes     int64
	Network           bool
	IPC               bool
}

// RuntimeInfo is a static capability descriptor for one supported language,
// surfaced on GET /api/runtimes.
type RuntimeInfo struct {
	Language Language `json:"language"`
	Version  string   `json:"version"`
	Compiled bool      `json:"compiled"`
}

// HealthStatus backs GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Bus     string `json:"bus"`
}

// ErrorResponse is a uniform JSON error body for HTTP endpoints.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}
