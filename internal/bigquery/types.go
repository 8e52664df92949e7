package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Archive records extraction runs and raw model output for later audit and
// prompt tuning. Writes are best-effort from the pipeline's point of view.
type Archive interface {
	// StartExtractionRun inserts a run with status=RUNNING and returns its run_id.
	StartExtractionRun(ctx context.Context, statementID, storageKey string) (string, error)

	// MarkExtractionRunSucceeded sets status=SUCCESS, the winning strategy and text length.
	MarkExtractionRunSucceeded(ctx context.Context, runID, strategy string, textChars int) error

	// MarkExtractionRunFailed sets status=FAILED and error_message. Failures are only logged.
	MarkExtractionRunFailed(ctx context.Context, runID string, runErr error)

	// InsertModelOutput stores one model response.
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error

	// InsertTransactionSnapshots stores the transactions committed for a model output.
	InsertTransactionSnapshots(ctx context.Context, rows []*TransactionSnapshotRow) error

	// ListModelOutputs returns the archived outputs of a statement, newest first.
	ListModelOutputs(ctx context.Context, statementID string) ([]*ModelOutputRow, error)
}

type ExtractionRunRow struct {
	RunID       string `bigquery:"run_id"`       // REQUIRED
	StatementID string `bigquery:"statement_id"` // REQUIRED
	StorageKey  string `bigquery:"storage_key"`  // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // RUNNING | SUCCESS | FAILED
	Strategy     bigquery.NullString `bigquery:"strategy"`      // NULLABLE
	TextChars    bigquery.NullInt64  `bigquery:"text_chars"`    // NULLABLE
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}

type ModelOutputRow struct {
	OutputID    string `bigquery:"output_id"`    // REQUIRED
	RunID       string `bigquery:"run_id"`       // NULLABLE when the run could not be started
	StatementID string `bigquery:"statement_id"` // REQUIRED
	OwnerID     string `bigquery:"owner_id"`     // REQUIRED

	ModelName string              `bigquery:"model_name"` // REQUIRED
	RawOutput bigquery.NullString `bigquery:"raw_output"` // NULLABLE, empty when the model was not called
	Parsed    bigquery.NullJSON   `bigquery:"parsed"`     // NULLABLE (JSON)

	Defaulted bool  `bigquery:"defaulted"`  // REQUIRED
	TextChars int64 `bigquery:"text_chars"` // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type TransactionSnapshotRow struct {
	OutputID    string `bigquery:"output_id"`    // REQUIRED
	StatementID string `bigquery:"statement_id"` // REQUIRED
	OwnerID     string `bigquery:"owner_id"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Description     string     `bigquery:"description"`      // REQUIRED
	Category        string     `bigquery:"category"`         // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NoopArchive discards everything. Used when archiving is disabled.
type NoopArchive struct{}

func (NoopArchive) StartExtractionRun(context.Context, string, string) (string, error) {
	return "", nil
}

func (NoopArchive) MarkExtractionRunSucceeded(context.Context, string, string, int) error {
	return nil
}

func (NoopArchive) MarkExtractionRunFailed(context.Context, string, error) {}

func (NoopArchive) InsertModelOutput(context.Context, *ModelOutputRow) error { return nil }

func (NoopArchive) InsertTransactionSnapshots(context.Context, []*TransactionSnapshotRow) error {
	return nil
}

func (NoopArchive) ListModelOutputs(context.Context, string) ([]*ModelOutputRow, error) {
	return nil, nil
}
