package pipeline

import (
	"time"

	bq "github.com/dvloznov/statement-insights/internal/bigquery"
	"github.com/dvloznov/statement-insights/internal/gcs"
)

// Deps wires the statement pipeline. Archive and Publisher may be nil.
type Deps struct {
	Storage      gcs.StorageService
	Extractor    TextExtractor
	Analyzer     StatementAnalyzer
	Statements   StatementRepository
	Transactions TransactionRepository
	Users        UserRepository
	Archive      bq.Archive
	Publisher    DashboardPublisher

	// ModelName is recorded with archived model output.
	ModelName string
	Now       func() time.Time
}

func (d Deps) archive() bq.Archive {
	if d.Archive == nil {
		return bq.NoopArchive{}
	}
	return d.Archive
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
