package jobs

import (
	"context"
	"errors"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying: Attempt fails the job at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Attempt runs handler once for job and records the outcome on job, saving it
// to store when store is non-nil. It reports whether the job failed with
// retries left and was not marked Permanent; RetryCount has then been incremented and the caller should
// publish it again after RetryDelay.
func Attempt(ctx context.Context, job *Job, handler JobHandler, store JobStore) bool {
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.CompletedAt = nil

	if store != nil {
		_ = store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	retry := false
	switch {
	case err == nil:
		job.Status = JobStatusCompleted
		job.Error = ""
	case job.CanRetry() && !IsPermanent(err):
		job.Error = err.Error()
		job.RetryCount++
		job.Status = JobStatusRetrying
		retry = true
	default:
		job.Error = err.Error()
		job.Status = JobStatusFailed
	}

	if store != nil {
		_ = store.SaveJob(ctx, job)
	}
	return retry
}

// Requeued returns a pending copy of job for its next attempt.
func Requeued(job *Job) *Job {
	next := *job
	next.Status = JobStatusPending
	next.StartedAt = nil
	next.CompletedAt = nil
	return &next
}
