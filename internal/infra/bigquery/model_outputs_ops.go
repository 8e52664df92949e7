package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertModelOutput inserts a single ModelOutputRow into model_outputs.
// Uses DML INSERT to avoid streaming buffer issues.
func (a *BigQueryArchive) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	q := a.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, statement_id, owner_id,
			model_name, raw_output, parsed,
			defaulted, text_chars, created_ts
		)
		VALUES (
			@output_id, @run_id, @statement_id, @owner_id,
			@model_name, @raw_output, @parsed,
			@defaulted, @text_chars, @created_ts
		)
	`, a.table(modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "statement_id", Value: row.StatementID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_output", Value: row.RawOutput},
		{Name: "parsed", Value: row.Parsed},
		{Name: "defaulted", Value: row.Defaulted},
		{Name: "text_chars", Value: row.TextChars},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}

// ListModelOutputs returns every archived output of a statement, newest first.
func (a *BigQueryArchive) ListModelOutputs(ctx context.Context, statementID string) ([]*ModelOutputRow, error) {
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			output_id,
			run_id,
			statement_id,
			owner_id,
			model_name,
			raw_output,
			parsed,
			defaulted,
			text_chars,
			created_ts
		FROM %s
		WHERE statement_id = @statement_id
		ORDER BY created_ts DESC
	`, a.table(modelOutputsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListModelOutputs: query read: %w", err)
	}

	var rows []*ModelOutputRow
	for {
		var r ModelOutputRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListModelOutputs: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
