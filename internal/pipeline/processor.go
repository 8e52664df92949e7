package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/metrics"
)

// StageResponse is what a stage entry point hands back to its transport.
type StageResponse struct {
	StatusCode int
	Body       json.RawMessage
}

func jsonResponse(status int, v interface{}) StageResponse {
	body, err := json.Marshal(v)
	if err != nil {
		body = []byte(`{"error":"failed to encode response"}`)
		status = http.StatusInternalServerError
	}
	return StageResponse{StatusCode: status, Body: body}
}

// Processor runs the statement pipeline for uploaded objects.
type Processor struct {
	pipeline   *Pipeline
	statements StatementRepository
}

// NewProcessor builds the standard pipeline from d.
func NewProcessor(d Deps) *Processor {
	return &Processor{
		pipeline:   NewStatementPipeline(d),
		statements: d.Statements,
	}
}

// Process runs every step for one object. When a step fails after the
// statement row exists, the row is marked FAILED.
func (p *Processor) Process(ctx context.Context, bucket, key string) (*PipelineState, error) {
	log := logger.FromContext(ctx).With().Str("bucket", bucket).Str("key", key).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{Bucket: bucket, Key: key}
	if err := p.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("owner_id", state.OwnerID).Msg("statement processing failed")
		p.markFailed(ctx, state)
		metrics.StatementProcessed(string(domain.StatusFailed))
		return state, err
	}

	log.Info().
		Str("statement_id", state.StatementID.String()).
		Str("owner_id", state.OwnerID).
		Str("strategy", state.Extraction.Strategy).
		Int("transactions", len(state.Inserted)).
		Msg("statement processed")
	metrics.StatementProcessed(string(domain.StatusCompleted))
	return state, nil
}

func (p *Processor) markFailed(ctx context.Context, state *PipelineState) {
	if state.StatementID == uuid.Nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := p.statements.SetStatus(ctx, state.StatementID, domain.StatusFailed); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("statement_id", state.StatementID.String()).
			Msg("failed to mark statement FAILED")
	}
}

// HandleUploadEvent parses a storage upload event and processes each object
// in order, stopping at the first failure.
func (p *Processor) HandleUploadEvent(ctx context.Context, payload []byte) StageResponse {
	refs, err := ParseUploadEvent(payload)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("rejecting upload event")
		return jsonResponse(http.StatusBadRequest, "Missing bucket or key parameters")
	}

	for _, ref := range refs {
		if _, err := p.Process(ctx, ref.Bucket, ref.Key); err != nil {
			return jsonResponse(http.StatusInternalServerError, fmt.Sprintf("Processing failed: %v", err))
		}
	}
	return jsonResponse(http.StatusOK, "Processing completed successfully")
}

// HandleProcessJob is the jobs.JobHandler for process_statement jobs.
func (p *Processor) HandleProcessJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.ProcessStatementJob
	if err := job.Decode(&payload); err != nil {
		return err
	}
	_, err := p.Process(ctx, payload.Bucket, payload.Key)
	if errors.Is(err, domain.ErrOwnerNotRegistered) || errors.Is(err, ErrNoText) {
		return jobs.Permanent(err)
	}
	return err
}
