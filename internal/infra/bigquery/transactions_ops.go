package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-insights/internal/domain"
)

// InsertTransactionSnapshots inserts a batch of rows into transaction_snapshots.
func (a *BigQueryArchive) InsertTransactionSnapshots(ctx context.Context, rows []*TransactionSnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := a.client.DatasetInProject(a.projectID, a.datasetID).Table(transactionSnapshotsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactionSnapshots: inserting rows: %w", err)
	}
	return nil
}

// SnapshotRows converts committed transactions into archive rows tied to outputID.
func SnapshotRows(outputID string, txs []domain.Transaction, now time.Time) []*TransactionSnapshotRow {
	rows := make([]*TransactionSnapshotRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &TransactionSnapshotRow{
			OutputID:        outputID,
			StatementID:     tx.StatementID.String(),
			OwnerID:         tx.OwnerID,
			TransactionDate: civil.DateOf(tx.Date),
			Amount:          tx.Amount.Rat(),
			Description:     tx.Description,
			Category:        tx.Category,
			CreatedTS:       now,
		})
	}
	return rows
}
