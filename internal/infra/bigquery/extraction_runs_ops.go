package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/google/uuid"
)

const maxErrorMessageLen = 2000

// StartExtractionRun inserts a new row into extraction_runs with status=RUNNING
// and returns the generated run_id.
func (a *BigQueryArchive) StartExtractionRun(ctx context.Context, statementID, storageKey string) (string, error) {
	runID := uuid.NewString()

	q := a.client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			statement_id,
			storage_key,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@statement_id,
			@storage_key,
			@started_ts,
			@status
		)
	`, a.table(extractionRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "statement_id", Value: statementID},
		{Name: "storage_key", Value: storageKey},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartExtractionRun: %w", err)
	}
	return runID, nil
}

// MarkExtractionRunSucceeded sets status=SUCCESS, finished_ts and the strategy that produced text.
func (a *BigQueryArchive) MarkExtractionRunSucceeded(ctx context.Context, runID, strategy string, textChars int) error {
	q := a.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    strategy = @strategy,
		    text_chars = @text_chars,
		    error_message = NULL
		WHERE run_id = @run_id
	`, a.table(extractionRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "strategy", Value: strategy},
		{Name: "text_chars", Value: textChars},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkExtractionRunSucceeded: %w", err)
	}
	return nil
}

// MarkExtractionRunFailed sets status=FAILED, finished_ts and error_message.
func (a *BigQueryArchive) MarkExtractionRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	q := a.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, a.table(extractionRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errorMessage(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkExtractionRunFailed: update failed")
	}
}

// errorMessage renders err for the error_message column, capped at maxErrorMessageLen bytes.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
