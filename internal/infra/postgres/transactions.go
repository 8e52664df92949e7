package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// TransactionRepository persists transaction rows.
type TransactionRepository struct {
	db DB
}

func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ReplaceForStatement deletes the statement's previous transactions and inserts
// txs in a single database transaction. Each row is inserted under its own
// savepoint: a row the database rejects is rolled back, logged and skipped
// while the others still commit. It returns the rows actually inserted.
func (r *TransactionRepository) ReplaceForStatement(ctx context.Context, statementID uuid.UUID, txs []domain.Transaction) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE statement_id = $1`, statementID); err != nil {
		return nil, fmt.Errorf("clear previous transactions: %w", err)
	}

	inserted := make([]domain.Transaction, 0, len(txs))
	for i, t := range txs {
		ok, err := insertRow(ctx, tx, t)
		if err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
		if !ok {
			log.Warn().Int("index", i).Str("statement_id", statementID.String()).Msg("transaction rejected by database, skipped")
			continue
		}
		inserted = append(inserted, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// insertRow inserts t inside a savepoint. It reports false when the insert
// failed and the savepoint was rolled back; an error means the outer
// transaction is no longer usable.
func insertRow(ctx context.Context, tx pgx.Tx, t domain.Transaction) (bool, error) {
	const insert = `
		INSERT INTO transactions (statement_id, owner_id, tx_date, description, amount, category)
		VALUES ($1, $2, $3, $4, $5, $6)`

	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, insert, t.StatementID, t.OwnerID, t.Date, t.Description, t.Amount, t.Category); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return false, fmt.Errorf("rollback savepoint: %w", rbErr)
		}
		return false, nil
	}
	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return true, nil
}

// ListByOwner returns the owner's most recent transactions, newest first.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
	const q = `
		SELECT statement_id, owner_id, tx_date, description, amount, category
		FROM transactions
		WHERE owner_id = $1
		ORDER BY tx_date DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.StatementID, &t.OwnerID, &t.Date, &t.Description, &t.Amount, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
