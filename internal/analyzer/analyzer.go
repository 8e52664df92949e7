package analyzer

import (
	"context"
	"strings"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/llm"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// MinInputChars is the shortest trimmed text worth sending to the model.
const MinInputChars = 10

// Result is the analyzer's output. Transactions holds the model's raw elements;
// they are coerced one by one when persisted.
type Result struct {
	Transactions []interface{}          `json:"transactions"`
	Analysis     domain.AnalysisSummary `json:"analysis"`

	// RawOutput is the model's unmodified text, kept for archival. Empty when
	// the model was not called.
	RawOutput string `json:"-"`
	// Defaulted is true when the result was substituted after a failure or guard.
	Defaulted bool `json:"-"`
}

// DefaultResult is the empty-but-valid result used whenever analysis cannot
// produce anything better.
func DefaultResult() Result {
	return Result{
		Transactions: []interface{}{},
		Analysis:     domain.EmptySummary(),
		Defaulted:    true,
	}
}

// Analyzer turns statement text into transactions and a summary.
type Analyzer struct {
	model llm.Model
}

// New creates an Analyzer backed by model.
func New(model llm.Model) *Analyzer {
	return &Analyzer{model: model}
}

// Analyze never fails: model errors and unparseable output yield DefaultResult.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	log := logger.FromContext(ctx)

	if len(strings.TrimSpace(text)) < MinInputChars {
		log.Debug().Int("chars", len(text)).Msg("text too short for analysis")
		return DefaultResult()
	}

	raw, err := a.model.Generate(ctx, buildAnalysisPrompt(truncateInput(text)))
	if err != nil {
		log.Warn().Err(err).Msg("model call failed, using default analysis")
		return DefaultResult()
	}

	parsed, err := ParseModelOutput(raw)
	if err != nil {
		log.Warn().Err(err).Msg("model output not parseable, using default analysis")
		res := DefaultResult()
		res.RawOutput = raw
		return res
	}

	res := FromModelOutput(parsed)
	res.RawOutput = raw
	return res
}

// FromModelOutput shapes a decoded model object into a Result. A missing or
// non-array "transactions" value becomes an empty list.
func FromModelOutput(parsed map[string]interface{}) Result {
	txs, ok := parsed["transactions"].([]interface{})
	if !ok {
		txs = []interface{}{}
	}
	return Result{
		Transactions: txs,
		Analysis:     summaryFromModel(parsed["analysis"]),
	}
}
