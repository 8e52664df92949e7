package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/analyzer"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/extract"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

// TextExtractor turns a stored PDF into text. *extract.Engine implements it.
type TextExtractor interface {
	Extract(ctx context.Context, bucket, key string) (extract.Result, error)
}

// StatementAnalyzer classifies statement text. *analyzer.Analyzer implements it.
type StatementAnalyzer interface {
	Analyze(ctx context.Context, text string) analyzer.Result
}

// StatementRepository persists statement rows.
type StatementRepository interface {
	Upsert(ctx context.Context, ownerID, storageKey string) (uuid.UUID, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.StatementStatus) error
	SaveSummary(ctx context.Context, id uuid.UUID, summary domain.AnalysisSummary) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error)
}

// TransactionRepository persists transaction rows. ReplaceForStatement returns
// the rows that were actually stored; rows the store rejects are skipped.
type TransactionRepository interface {
	ReplaceForStatement(ctx context.Context, statementID uuid.UUID, txs []domain.Transaction) ([]domain.Transaction, error)
}

// UserRepository answers whether an owner is registered.
type UserRepository interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// DashboardPublisher sends the completion signal that renders a dashboard.
type DashboardPublisher interface {
	PublishRenderDashboard(ctx context.Context, p jobs.RenderDashboardJob) (*jobs.Job, error)
}

// DashboardRenderer builds a statement's dashboard page. *dashboard.Renderer implements it.
type DashboardRenderer interface {
	RenderStatement(ctx context.Context, st *domain.Statement) string
}
