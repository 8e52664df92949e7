package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/analyzer"
	bq "github.com/dvloznov/statement-insights/internal/bigquery"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/extract"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

type mockStorage struct {
	AttrsFunc     func(ctx context.Context, bucket, key string) (gcs.ObjectAttrs, error)
	UploadFunc    func(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error
	ListFunc      func(ctx context.Context, bucket, prefix string) ([]gcs.ObjectAttrs, error)
	SignedURLFunc func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

func (m *mockStorage) Attrs(ctx context.Context, bucket, key string) (gcs.ObjectAttrs, error) {
	if m.AttrsFunc != nil {
		return m.AttrsFunc(ctx, bucket, key)
	}
	return gcs.ObjectAttrs{Bucket: bucket, Key: key}, nil
}

func (m *mockStorage) DownloadToTemp(ctx context.Context, bucket, key string) (string, error) {
	return "", gcs.ErrObjectNotFound
}

func (m *mockStorage) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, bucket, key, data, contentType, metadata)
	}
	return nil
}

func (m *mockStorage) UploadFile(ctx context.Context, bucket, key, filePath string, metadata map[string]string) error {
	return nil
}

func (m *mockStorage) List(ctx context.Context, bucket, prefix string) ([]gcs.ObjectAttrs, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bucket, prefix)
	}
	return nil, nil
}

func (m *mockStorage) SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if m.SignedURLFunc != nil {
		return m.SignedURLFunc(ctx, bucket, key, expiry)
	}
	return "https://signed.example/" + key, nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, bucket, key string) (extract.Result, error)
}

func (m *mockExtractor) Extract(ctx context.Context, bucket, key string) (extract.Result, error) {
	return m.ExtractFunc(ctx, bucket, key)
}

type mockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, text string) analyzer.Result
}

func (m *mockAnalyzer) Analyze(ctx context.Context, text string) analyzer.Result {
	return m.AnalyzeFunc(ctx, text)
}

// memoryStatements keeps statement rows in a map keyed by id.
type memoryStatements struct {
	rows      map[uuid.UUID]*domain.Statement
	upserts   int
	UpsertErr error
	GetErr    error
}

func newMemoryStatements() *memoryStatements {
	return &memoryStatements{rows: map[uuid.UUID]*domain.Statement{}}
}

func (m *memoryStatements) Upsert(ctx context.Context, ownerID, storageKey string) (uuid.UUID, error) {
	m.upserts++
	if m.UpsertErr != nil {
		return uuid.Nil, m.UpsertErr
	}
	for id, st := range m.rows {
		if st.StorageKey == storageKey {
			st.OwnerID = ownerID
			st.Status = domain.StatusProcessing
			return id, nil
		}
	}
	id := uuid.New()
	m.rows[id] = &domain.Statement{ID: id, OwnerID: ownerID, StorageKey: storageKey, Status: domain.StatusProcessing, CreatedAt: time.Now()}
	return id, nil
}

func (m *memoryStatements) SetStatus(ctx context.Context, id uuid.UUID, status domain.StatementStatus) error {
	st, ok := m.rows[id]
	if !ok {
		return domain.ErrStatementNotFound
	}
	st.Status = status
	return nil
}

func (m *memoryStatements) SaveSummary(ctx context.Context, id uuid.UUID, summary domain.AnalysisSummary) error {
	st, ok := m.rows[id]
	if !ok {
		return domain.ErrStatementNotFound
	}
	st.AnalysisSummary = &summary
	return nil
}

func (m *memoryStatements) Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	st, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrStatementNotFound
	}
	cp := *st
	return &cp, nil
}

type memoryTransactions struct {
	rows       map[uuid.UUID][]domain.Transaction
	ReplaceErr error
	// Reject drops matching rows the way a constraint violation would.
	Reject func(domain.Transaction) bool
}

func (m *memoryTransactions) ReplaceForStatement(ctx context.Context, statementID uuid.UUID, txs []domain.Transaction) ([]domain.Transaction, error) {
	if m.ReplaceErr != nil {
		return nil, m.ReplaceErr
	}
	if m.rows == nil {
		m.rows = map[uuid.UUID][]domain.Transaction{}
	}
	kept := make([]domain.Transaction, 0, len(txs))
	for _, t := range txs {
		if m.Reject != nil && m.Reject(t) {
			continue
		}
		kept = append(kept, t)
	}
	m.rows[statementID] = kept
	return append([]domain.Transaction(nil), kept...), nil
}

type mockUsers struct {
	ExistsFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *mockUsers) Exists(ctx context.Context, userID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, userID)
	}
	return true, nil
}

type mockPublisher struct {
	published []jobs.RenderDashboardJob
	Err       error
}

func (m *mockPublisher) PublishRenderDashboard(ctx context.Context, p jobs.RenderDashboardJob) (*jobs.Job, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.published = append(m.published, p)
	return jobs.NewRenderDashboard(p)
}

// recordingArchive embeds NoopArchive and remembers what it was given.
type recordingArchive struct {
	bq.NoopArchive
	started   []string
	succeeded []string
	failed    []string
	outputs   []*bq.ModelOutputRow
	snapshots []*bq.TransactionSnapshotRow
	OutputErr error
}

func (a *recordingArchive) StartExtractionRun(ctx context.Context, statementID, storageKey string) (string, error) {
	a.started = append(a.started, statementID)
	return "run-" + statementID, nil
}

func (a *recordingArchive) MarkExtractionRunSucceeded(ctx context.Context, runID, strategy string, textChars int) error {
	a.succeeded = append(a.succeeded, strategy)
	return nil
}

func (a *recordingArchive) MarkExtractionRunFailed(ctx context.Context, runID string, runErr error) {
	a.failed = append(a.failed, runErr.Error())
}

func (a *recordingArchive) InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error {
	if a.OutputErr != nil {
		return a.OutputErr
	}
	a.outputs = append(a.outputs, row)
	return nil
}

func (a *recordingArchive) InsertTransactionSnapshots(ctx context.Context, rows []*bq.TransactionSnapshotRow) error {
	a.snapshots = append(a.snapshots, rows...)
	return nil
}

type mockRenderer struct {
	RenderFunc func(ctx context.Context, st *domain.Statement) string
}

func (m *mockRenderer) RenderStatement(ctx context.Context, st *domain.Statement) string {
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, st)
	}
	return "<html>" + st.OwnerID + "</html>"
}
