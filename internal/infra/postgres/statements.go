package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// StatementRepository persists statement rows.
type StatementRepository struct {
	db DB
}

func NewStatementRepository(db DB) *StatementRepository {
	return &StatementRepository{db: db}
}

const statementColumns = `id, owner_id, storage_key, status, created_at, analysis_summary`

// Upsert creates the statement for storageKey, or resets an existing one to
// PROCESSING with a fresh created_at. It returns the row's id either way.
func (r *StatementRepository) Upsert(ctx context.Context, ownerID, storageKey string) (uuid.UUID, error) {
	const q = `
		INSERT INTO statements (id, owner_id, storage_key, status, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (storage_key) DO UPDATE
		SET status = EXCLUDED.status, created_at = now()
		RETURNING id`

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, q, uuid.New(), ownerID, storageKey, string(domain.StatusProcessing)).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("upsert statement %q: %w", storageKey, err)
	}
	return id, nil
}

// SetStatus updates a statement's processing status.
func (r *StatementRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.StatementStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE statements SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("set statement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatementNotFound
	}
	return nil
}

// SaveSummary stores the analysis summary JSON on the statement.
func (r *StatementRepository) SaveSummary(ctx context.Context, id uuid.UUID, summary domain.AnalysisSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tag, err := r.db.Exec(ctx, `UPDATE statements SET analysis_summary = $1 WHERE id = $2`, raw, id)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatementNotFound
	}
	return nil
}

// Get loads one statement by id.
func (r *StatementRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	row := r.db.QueryRow(ctx, `SELECT `+statementColumns+` FROM statements WHERE id = $1`, id)

	s, err := scanStatement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStatementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get statement: %w", err)
	}
	return s, nil
}

// RecentAnalyzed returns up to limit of the owner's statements that carry a
// summary, newest first, leaving out excludeID.
func (r *StatementRepository) RecentAnalyzed(ctx context.Context, ownerID string, excludeID uuid.UUID, limit int) ([]domain.Statement, error) {
	const q = `
		SELECT ` + statementColumns + `
		FROM statements
		WHERE owner_id = $1 AND analysis_summary IS NOT NULL AND id <> $2
		ORDER BY created_at DESC
		LIMIT $3`

	return r.list(ctx, q, ownerID, excludeID, limit)
}

// ListByOwner returns the owner's statements newest first.
func (r *StatementRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error) {
	const q = `
		SELECT ` + statementColumns + `
		FROM statements
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.list(ctx, q, ownerID, limit)
}

func (r *StatementRepository) list(ctx context.Context, q string, args ...any) ([]domain.Statement, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	var out []domain.Statement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return out, nil
}

func scanStatement(row pgx.Row) (*domain.Statement, error) {
	var (
		s       domain.Statement
		status  string
		summary []byte
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.StorageKey, &status, &s.CreatedAt, &summary); err != nil {
		return nil, err
	}
	s.Status = domain.StatementStatus(status)

	if len(summary) > 0 {
		var parsed domain.AnalysisSummary
		if err := json.Unmarshal(summary, &parsed); err != nil {
			return nil, fmt.Errorf("decode analysis_summary for %s: %w", s.ID, err)
		}
		s.AnalysisSummary = &parsed
	}
	return &s, nil
}
