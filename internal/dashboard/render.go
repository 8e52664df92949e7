// Package dashboard renders the HTML analytics report of a statement owner.
package dashboard

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/metrics"
)

const (
	// OtherStatements is how many earlier analyzed statements of the same
	// owner are merged into a dashboard.
	OtherStatements = 4
	// RefreshInterval is how often an open dashboard reloads itself.
	RefreshInterval = 30 * time.Second
	// DateLayout formats statement dates in the recent list.
	DateLayout = "02/01/2006 15:04"
)

var palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
}

var (
	//go:embed templates/dashboard.html
	dashboardHTML string

	//go:embed templates/default.html
	defaultHTML string

	pageTemplate = template.Must(template.New("dashboard").Parse(dashboardHTML))
)

// StatementStore reads the statements a dashboard is built from.
type StatementStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error)
	RecentAnalyzed(ctx context.Context, ownerID string, excludeID uuid.UUID, limit int) ([]domain.Statement, error)
}

// Renderer builds dashboard pages from stored summaries.
type Renderer struct {
	store StatementStore
}

func NewRenderer(store StatementStore) *Renderer {
	return &Renderer{store: store}
}

// DefaultPage is served whenever a real dashboard cannot be built.
func DefaultPage() string {
	return defaultHTML
}

// Render never fails. Any lookup or rendering problem yields DefaultPage.
func (r *Renderer) Render(ctx context.Context, statementID uuid.UUID) string {
	st, err := r.store.Get(ctx, statementID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("statement_id", statementID.String()).Msg("dashboard: load statement")
		return fallback()
	}
	return r.RenderStatement(ctx, st)
}

// RenderStatement builds the dashboard for an already loaded statement.
func (r *Renderer) RenderStatement(ctx context.Context, st *domain.Statement) string {
	log := logger.FromContext(ctx).With().
		Str("statement_id", st.ID.String()).
		Str("owner_id", st.OwnerID).
		Logger()

	if st.AnalysisSummary == nil {
		log.Info().Msg("dashboard: statement has no analysis yet")
		return fallback()
	}

	others, err := r.store.RecentAnalyzed(ctx, st.OwnerID, st.ID, OtherStatements)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard: load recent statements")
		return fallback()
	}

	page, err := Page(append([]domain.Statement{*st}, others...))
	if err != nil {
		log.Error().Err(err).Msg("dashboard: render page")
		return fallback()
	}

	metrics.DashboardRendered(true)
	log.Debug().Int("statements", len(others)+1).Msg("dashboard rendered")
	return page
}

func fallback() string {
	metrics.DashboardRendered(false)
	return defaultHTML
}

type pieItem struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
	Color    string  `json:"color"`
}

type barItem struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Color    string `json:"color"`
}

type recentItem struct {
	Date         string
	Owner        string
	NetAmount    string
	Transactions int
	Pending      bool
}

type pageData struct {
	Currency      string
	TotalIncome   string
	TotalExpense  string
	NetAmount     string
	Transactions  int
	PieData       template.JS
	BarData       template.JS
	Recent        []recentItem
	RefreshMillis int64
}

// Page renders the dashboard for statements, the first one being the
// statement the dashboard is for.
func Page(statements []domain.Statement) (string, error) {
	totals := Aggregate(statements)

	pie := make([]pieItem, 0, len(totals.Categories))
	bar := make([]barItem, 0, len(totals.Categories))
	for i, c := range totals.Categories {
		color := palette[i%len(palette)]
		pie = append(pie, pieItem{Category: c.Name, Amount: c.Amount.InexactFloat64(), Count: c.Count, Color: color})
		bar = append(bar, barItem{Category: c.Name, Count: c.Count, Color: color})
	}

	pieJSON, err := json.Marshal(pie)
	if err != nil {
		return "", fmt.Errorf("marshal pie data: %w", err)
	}
	barJSON, err := json.Marshal(bar)
	if err != nil {
		return "", fmt.Errorf("marshal bar data: %w", err)
	}

	data := pageData{
		Currency:      Currency,
		TotalIncome:   formatAmount(totals.TotalIncome),
		TotalExpense:  formatAmount(totals.TotalExpense),
		NetAmount:     formatAmount(totals.NetAmount),
		Transactions:  totals.Transactions,
		PieData:       template.JS(pieJSON),
		BarData:       template.JS(barJSON),
		Recent:        recentList(statements),
		RefreshMillis: RefreshInterval.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute dashboard template: %w", err)
	}
	return buf.String(), nil
}

func recentList(statements []domain.Statement) []recentItem {
	items := make([]recentItem, 0, len(statements))
	for _, s := range statements {
		item := recentItem{
			Date:  s.CreatedAt.Format(DateLayout),
			Owner: s.OwnerID,
		}
		if s.AnalysisSummary == nil {
			item.Pending = true
		} else {
			item.NetAmount = formatAmount(s.AnalysisSummary.NetAmount)
			item.Transactions = s.AnalysisSummary.TransactionCount
		}
		items = append(items, item)
	}
	return items
}
