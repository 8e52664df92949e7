package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/metrics"
)

// Router dispatches jobs to the handler registered for their type.
type Router struct {
	handlers map[JobType]JobHandler
}

func NewRouter() *Router {
	return &Router{handlers: map[JobType]JobHandler{}}
}

// Handle registers h for jobs of type t, replacing any earlier handler.
func (r *Router) Handle(t JobType, h JobHandler) {
	r.handlers[t] = h
}

// Dispatch is a JobHandler that routes job by type.
func (r *Router) Dispatch(ctx context.Context, job *Job) error {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Int("attempt", job.RetryCount+1).
		Logger()

	h, ok := r.handlers[job.Type]
	if !ok {
		metrics.JobHandled(string(job.Type), "unknown")
		return fmt.Errorf("no handler for job type %q", job.Type)
	}

	if err := h(logger.WithContext(ctx, log), job); err != nil {
		log.Error().Err(err).Msg("job failed")
		metrics.JobHandled(string(job.Type), "error")
		return err
	}

	log.Info().Msg("job completed")
	metrics.JobHandled(string(job.Type), "ok")
	return nil
}
