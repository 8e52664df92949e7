package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/statement-insights/internal/bigquery"
)

// Re-export types from shared package for backward compatibility
type (
	Archive                = bq.Archive
	ExtractionRunRow       = bq.ExtractionRunRow
	ModelOutputRow         = bq.ModelOutputRow
	TransactionSnapshotRow = bq.TransactionSnapshotRow
)

const (
	extractionRunsTable       = "extraction_runs"
	modelOutputsTable         = "model_outputs"
	transactionSnapshotsTable = "transaction_snapshots"
	schemaMigrationsTable     = "schema_migrations"
)

// BigQueryArchive is the concrete implementation of Archive that interacts
// with BigQuery. It holds a shared client to avoid creating a new connection
// for each operation.
type BigQueryArchive struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

var _ Archive = (*BigQueryArchive)(nil)

// NewBigQueryArchive creates an archive writing to projectID.datasetID.
func NewBigQueryArchive(ctx context.Context, projectID, datasetID string) (*BigQueryArchive, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryArchive: creating client: %w", err)
	}
	return &BigQueryArchive{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (a *BigQueryArchive) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// tableRef returns the backtick-quoted fully qualified table name.
func tableRef(projectID, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, table)
}

func (a *BigQueryArchive) table(name string) string {
	return tableRef(a.projectID, a.datasetID, name)
}

// runDML runs a statement and waits for it. DML is used instead of streaming
// inserts so rows can be updated right after they are written.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
