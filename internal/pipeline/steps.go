package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bigquerylib "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/analyzer"
	bq "github.com/dvloznov/statement-insights/internal/bigquery"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/gcs"
	infra "github.com/dvloznov/statement-insights/internal/infra/bigquery"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/metrics"
)

// ResolveOwnerStep picks the statement owner: the object's user-id metadata,
// then the key segment after "statements/", then domain.DefaultOwnerID.
type ResolveOwnerStep struct {
	Storage gcs.StorageService
}

func (s *ResolveOwnerStep) Name() string { return "resolve_owner" }

func (s *ResolveOwnerStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	var metadata map[string]string
	attrs, err := s.Storage.Attrs(ctx, state.Bucket, state.Key)
	if err != nil {
		log.Warn().Err(err).Str("key", state.Key).Msg("failed to read object metadata")
	} else {
		metadata = attrs.Metadata
	}

	state.OwnerID = ResolveOwner(metadata, state.Key)
	return nil
}

// ResolveOwner applies the owner precedence to already loaded metadata.
func ResolveOwner(metadata map[string]string, key string) string {
	if owner := strings.TrimSpace(metadata[gcs.OwnerMetadataKey]); owner != "" {
		return owner
	}
	if strings.HasPrefix(key, "statements/") {
		if owner := gcs.OwnerFromKey(key); owner != "" {
			return owner
		}
	}
	return domain.DefaultOwnerID
}

// CheckOwnerStep refuses statements of owners without a users row.
type CheckOwnerStep struct {
	Users UserRepository
}

func (s *CheckOwnerStep) Name() string { return "check_owner" }

func (s *CheckOwnerStep) Execute(ctx context.Context, state *PipelineState) error {
	ok, err := s.Users.Exists(ctx, state.OwnerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOwnerNotRegistered, state.OwnerID)
	}
	return nil
}

// UpsertStatementStep creates or resets the statement row for the key.
type UpsertStatementStep struct {
	Statements StatementRepository
}

func (s *UpsertStatementStep) Name() string { return "upsert_statement" }

func (s *UpsertStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	id, err := s.Statements.Upsert(ctx, state.OwnerID, state.Key)
	if err != nil {
		return err
	}
	state.StatementID = id
	return nil
}

// ExtractTextStep runs the extraction cascade and records the run in the archive.
type ExtractTextStep struct {
	Extractor TextExtractor
	Archive   bq.Archive
}

func (s *ExtractTextStep) Name() string { return "extract_text" }

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	runID, err := s.Archive.StartExtractionRun(ctx, state.StatementID.String(), state.Key)
	if err != nil {
		log.Warn().Err(err).Msg("failed to archive extraction run start")
	}
	state.RunID = runID

	res, err := s.Extractor.Extract(ctx, state.Bucket, state.Key)
	if err == nil && res.Text == "" {
		err = ErrNoText
	}
	if err != nil {
		if runID != "" {
			s.Archive.MarkExtractionRunFailed(ctx, runID, err)
		}
		return err
	}

	if runID != "" {
		if err := s.Archive.MarkExtractionRunSucceeded(ctx, runID, res.Strategy, len(res.Text)); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("failed to archive extraction run result")
		}
	}
	state.Extraction = res
	return nil
}

// AnalyzeStep sends the text to the analyzer. It never fails.
type AnalyzeStep struct {
	Analyzer StatementAnalyzer
}

func (s *AnalyzeStep) Name() string { return "analyze" }

func (s *AnalyzeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Analysis = s.Analyzer.Analyze(ctx, state.Extraction.Text)
	metrics.AnalyzerOutcome(state.Analysis.Defaulted)
	return nil
}

// PersistTransactionsStep coerces and stores the transactions, then saves the
// summary recomputed from what was stored.
type PersistTransactionsStep struct {
	Transactions TransactionRepository
	Statements   StatementRepository
	Now          func() time.Time
}

func (s *PersistTransactionsStep) Name() string { return "persist_transactions" }

func (s *PersistTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	now := s.Now()

	txs := make([]domain.Transaction, 0, len(state.Analysis.Transactions))
	state.Skipped = 0
	for i, item := range state.Analysis.Transactions {
		tx, err := analyzer.CoerceTransaction(item, state.StatementID, state.OwnerID, now)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping transaction")
			state.Skipped++
			continue
		}
		txs = append(txs, tx)
	}

	inserted, err := s.Transactions.ReplaceForStatement(ctx, state.StatementID, txs)
	if err != nil {
		return err
	}
	state.Inserted = inserted
	n := len(inserted)
	state.Skipped += len(txs) - n

	metrics.TransactionsInserted(n)
	metrics.TransactionsSkipped(state.Skipped)

	state.Summary = analyzer.Recompute(state.Analysis.Analysis, state.Inserted)
	if err := s.Statements.SaveSummary(ctx, state.StatementID, state.Summary); err != nil {
		return err
	}

	log.Info().Int("inserted", n).Int("skipped", state.Skipped).Msg("transactions stored")
	return nil
}

// ArchiveModelOutputStep copies the raw model output and the stored
// transactions to the archive. Failures are logged only.
type ArchiveModelOutputStep struct {
	Archive   bq.Archive
	ModelName string
	Now       func() time.Time
}

func (s *ArchiveModelOutputStep) Name() string { return "archive_model_output" }

func (s *ArchiveModelOutputStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	now := s.Now()

	row := &bq.ModelOutputRow{
		OutputID:    uuid.NewString(),
		RunID:       state.RunID,
		StatementID: state.StatementID.String(),
		OwnerID:     state.OwnerID,
		ModelName:   s.ModelName,
		RawOutput:   bigquerylib.NullString{StringVal: state.Analysis.RawOutput, Valid: state.Analysis.RawOutput != ""},
		Defaulted:   state.Analysis.Defaulted,
		TextChars:   int64(len(state.Extraction.Text)),
		CreatedTS:   now,
	}
	if parsed, err := json.Marshal(state.Analysis); err == nil {
		row.Parsed = bigquerylib.NullJSON{JSONVal: string(parsed), Valid: true}
	}

	if err := s.Archive.InsertModelOutput(ctx, row); err != nil {
		log.Warn().Err(err).Msg("failed to archive model output")
		return nil
	}
	if err := s.Archive.InsertTransactionSnapshots(ctx, infra.SnapshotRows(row.OutputID, state.Inserted, now)); err != nil {
		log.Warn().Err(err).Str("output_id", row.OutputID).Msg("failed to archive transaction snapshots")
	}
	return nil
}

// MarkCompletedStep sets the statement status to COMPLETED.
type MarkCompletedStep struct {
	Statements StatementRepository
}

func (s *MarkCompletedStep) Name() string { return "mark_completed" }

func (s *MarkCompletedStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Statements.SetStatus(ctx, state.StatementID, domain.StatusCompleted)
}

// TriggerDashboardStep publishes the dashboard job once. Failures are logged
// and never fail the statement.
type TriggerDashboardStep struct {
	Publisher DashboardPublisher
}

func (s *TriggerDashboardStep) Name() string { return "trigger_dashboard" }

func (s *TriggerDashboardStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	if s.Publisher == nil {
		log.Debug().Msg("no dashboard publisher configured")
		return nil
	}

	job, err := s.Publisher.PublishRenderDashboard(ctx, jobs.RenderDashboardJob{
		TriggerSource: jobs.TriggerSourceBankExtract,
		StatementID:   state.StatementID.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to trigger dashboard")
		return nil
	}
	log.Info().Str("job_id", job.JobID).Msg("dashboard triggered")
	return nil
}
