package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessStatement runs extraction and analysis for one stored statement.
	JobTypeProcessStatement JobType = "process_statement"
	// JobTypeRenderDashboard renders the dashboard of an analyzed statement.
	JobTypeRenderDashboard JobType = "render_dashboard"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

const (
	// ProcessMaxRetries bounds how often a failed statement is re-processed.
	ProcessMaxRetries = 3
	// RetryStep is multiplied by the retry count to get the delay before a retry.
	RetryStep = time.Second
)

// ProcessStatementJob asks for the statement stored at Bucket/Key to be processed.
type ProcessStatementJob struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// RenderDashboardJob is the completion signal of statement processing.
type RenderDashboardJob struct {
	TriggerSource string `json:"trigger_source"`
	StatementID   string `json:"statement_id"`
}

// TriggerSourceBankExtract marks dashboard triggers sent by statement processing.
const TriggerSourceBankExtract = "bank_extract"

// Job is the envelope every queue carries. Payload holds one of the typed
// job structs above, selected by Type.
type Job struct {
	JobID       string          `json:"job_id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
}

// NewJob wraps payload in a pending envelope with a fresh id.
func NewJob(t JobType, payload any, maxRetries int) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return &Job{
		JobID:      uuid.New().String(),
		Type:       t,
		Payload:    raw,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
	}, nil
}

// NewProcessStatement builds a process job, retried up to ProcessMaxRetries times.
func NewProcessStatement(p ProcessStatementJob) (*Job, error) {
	return NewJob(JobTypeProcessStatement, p, ProcessMaxRetries)
}

// NewRenderDashboard builds a dashboard job. It is delivered at most once.
func NewRenderDashboard(p RenderDashboardJob) (*Job, error) {
	return NewJob(JobTypeRenderDashboard, p, 0)
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s job %s: %w", j.Type, j.JobID, err)
	}
	return nil
}

// CanRetry reports whether a failed attempt should be queued again.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// RetryDelay is the wait before attempt RetryCount+1.
func (j *Job) RetryDelay() time.Duration {
	return time.Duration(j.RetryCount) * RetryStep
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	PublishProcessStatement(ctx context.Context, p ProcessStatementJob) (*Job, error)
	PublishRenderDashboard(ctx context.Context, p RenderDashboardJob) (*Job, error)

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the attempt failed and
// triggers a retry while the job has retries left.
type JobHandler func(ctx context.Context, job *Job) error

// JobStore tracks job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}

// Match reports whether job passes the type and status filters.
func (f JobFilter) Match(job *Job) bool {
	if f.Type != "" && job.Type != f.Type {
		return false
	}
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	return true
}
