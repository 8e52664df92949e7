// Package pipeline runs statement processing as an ordered chain of steps and
// exposes the upload and dashboard stage entry points.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/analyzer"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/extract"
)

// ErrNoText is returned when no extraction strategy produced usable text.
var ErrNoText = errors.New("could not extract text from PDF")

// PipelineStep represents a single step in the processing pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Bucket string
	Key    string

	OwnerID     string
	StatementID uuid.UUID
	RunID       string

	Extraction extract.Result
	Analysis   analyzer.Result

	// Inserted are the transactions committed for the statement; Skipped
	// counts model elements that could not be coerced or that the store rejected.
	Inserted []domain.Transaction
	Skipped  int
	Summary  domain.AnalysisSummary
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// NewStatementPipeline creates the standard statement processing chain.
func NewStatementPipeline(d Deps) *Pipeline {
	return NewPipeline(
		&ResolveOwnerStep{Storage: d.Storage},
		&CheckOwnerStep{Users: d.Users},
		&UpsertStatementStep{Statements: d.Statements},
		&ExtractTextStep{Extractor: d.Extractor, Archive: d.archive()},
		&AnalyzeStep{Analyzer: d.Analyzer},
		&PersistTransactionsStep{Transactions: d.Transactions, Statements: d.Statements, Now: d.now},
		&ArchiveModelOutputStep{Archive: d.archive(), ModelName: d.ModelName, Now: d.now},
		&MarkCompletedStep{Statements: d.Statements},
		&TriggerDashboardStep{Publisher: d.Publisher},
	)
}
