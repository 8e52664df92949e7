// Package app wires configuration into the concrete services shared by the
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"github.com/dvloznov/statement-insights/internal/analyzer"
	bq "github.com/dvloznov/statement-insights/internal/bigquery"
	"github.com/dvloznov/statement-insights/internal/chat"
	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/dashboard"
	"github.com/dvloznov/statement-insights/internal/extract"
	"github.com/dvloznov/statement-insights/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-insights/internal/infra/bigquery"
	"github.com/dvloznov/statement-insights/internal/infra/postgres"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/jobs/inmemory"
	"github.com/dvloznov/statement-insights/internal/jobs/redisq"
	"github.com/dvloznov/statement-insights/internal/llm"
	"github.com/dvloznov/statement-insights/internal/ocr"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

// Queue is a job queue that can both publish and consume.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// App holds the long-lived clients. Model-backed services are created on
// first use so that commands which never call the model need no credentials.
type App struct {
	Cfg *config.Config
	Log zerolog.Logger

	Pool         *pgxpool.Pool
	Storage      *gcsuploader.GCSStorageService
	Statements   *postgres.StatementRepository
	Transactions *postgres.TransactionRepository
	Users        *postgres.UserRepository
	Archive      bq.Archive
	Renderer     *dashboard.Renderer
	Dashboards   *pipeline.DashboardStage
	JobStore     jobs.JobStore

	mu        sync.Mutex
	genai     *genai.Client
	ocr       ocr.Recognizer
	queue     Queue
	processor *pipeline.Processor
	closers   []func() error
}

// New connects to Postgres, Cloud Storage and, when enabled, BigQuery.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log, JobStore: inmemory.NewStore()}

	pool, err := postgres.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	var opts []option.ClientOption
	if cfg.GCP.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCP.CredentialsFile))
	}
	storage, err := gcsuploader.NewGCSStorageService(ctx, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Storage = storage
	a.closers = append(a.closers, storage.Close)

	a.Archive = bq.NoopArchive{}
	if cfg.GCP.ArchiveEnabled {
		archive, err := infraBQ.NewBigQueryArchive(ctx, cfg.GCP.ProjectID, cfg.GCP.BigQueryDataset)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Archive = archive
		a.closers = append(a.closers, archive.Close)
	}

	a.Statements = postgres.NewStatementRepository(pool)
	a.Transactions = postgres.NewTransactionRepository(pool)
	a.Users = postgres.NewUserRepository(pool)
	a.Renderer = dashboard.NewRenderer(a.Statements)
	a.Dashboards = pipeline.NewDashboardStage(pipeline.DashboardOptions{
		Statements: a.Statements,
		Renderer:   a.Renderer,
		Storage:    a.Storage,
		Bucket:     cfg.GCP.Bucket,
		Prefix:     cfg.Dashboard.Prefix,
		URLExpiry:  cfg.Dashboard.URLExpiry,
		ListLimit:  cfg.Dashboard.ListLimit,
	})

	log.Info().
		Bool("archive", cfg.GCP.ArchiveEnabled).
		Str("bucket", cfg.GCP.Bucket).
		Msg("application initialized")
	return a, nil
}

// Queue returns the configured job queue, dialing redis on first use.
func (a *App) Queue(ctx context.Context) (Queue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.queue != nil {
		return a.queue, nil
	}

	switch a.Cfg.Queue.Backend {
	case "redis":
		client, err := redisq.Dial(ctx, a.Cfg.Queue.RedisAddr)
		if err != nil {
			return nil, err
		}
		q := redisq.New(client, a.Cfg.Queue.RedisQueue, a.Cfg.Queue.Workers, a.JobStore)
		a.queue = q
		a.closers = append(a.closers, q.Close)
	default:
		q := inmemory.NewQueue(a.Cfg.Queue.BufferSize, a.Cfg.Queue.Workers, a.JobStore)
		a.queue = q
		a.closers = append(a.closers, q.Close)
	}
	return a.queue, nil
}

func (a *App) genaiClient(ctx context.Context) (*genai.Client, error) {
	if a.genai != nil {
		return a.genai, nil
	}
	client, err := llm.NewClient(ctx, a.Cfg.Model.APIKey)
	if err != nil {
		return nil, err
	}
	a.genai = client
	return client, nil
}

// Extractor builds the extraction cascade with the configured OCR provider.
func (a *App) Extractor(ctx context.Context) (*extract.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.extractorLocked(ctx)
}

func (a *App) extractorLocked(ctx context.Context) (*extract.Engine, error) {
	if a.ocr == nil {
		recognizer, err := ocr.New(ctx, a.Cfg)
		if err != nil {
			return nil, err
		}
		a.ocr = recognizer
		a.closers = append(a.closers, recognizer.Close)
	}
	return extract.NewDefault(a.Storage, a.ocr), nil
}

// Processor builds the statement pipeline. publisher receives the dashboard
// trigger and may be nil.
func (a *App) Processor(ctx context.Context, publisher pipeline.DashboardPublisher) (*pipeline.Processor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.processor != nil {
		return a.processor, nil
	}

	extractor, err := a.extractorLocked(ctx)
	if err != nil {
		return nil, err
	}
	client, err := a.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	model := llm.NewGemini(client, llm.Options{
		Name:        a.Cfg.Model.Name,
		Temperature: 0.1,
		MaxTokens:   int32(a.Cfg.Model.MaxTokens),
	})

	a.processor = pipeline.NewProcessor(pipeline.Deps{
		Storage:      a.Storage,
		Extractor:    extractor,
		Analyzer:     analyzer.New(model),
		Statements:   a.Statements,
		Transactions: a.Transactions,
		Users:        a.Users,
		Archive:      a.Archive,
		Publisher:    publisher,
		ModelName:    a.Cfg.Model.Name,
	})
	return a.processor, nil
}

// Chat builds the question-answering service.
func (a *App) Chat(ctx context.Context) (*chat.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	client, err := a.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	model := llm.NewGemini(client, llm.Options{
		Name:        a.Cfg.Model.ChatName,
		Temperature: 0.3,
		MaxTokens:   chat.MaxTokens,
		System:      chat.SystemPrompt,
	})
	return chat.NewService(model, a.Transactions, a.Statements), nil
}

// RegisterJobHandlers routes both job types to their stages.
func (a *App) RegisterJobHandlers(ctx context.Context, router *jobs.Router, publisher pipeline.DashboardPublisher) error {
	processor, err := a.Processor(ctx, publisher)
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}
	router.Handle(jobs.JobTypeProcessStatement, processor.HandleProcessJob)
	router.Handle(jobs.JobTypeRenderDashboard, a.Dashboards.HandleJob)
	return nil
}

// Close releases every client in reverse order of creation.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
