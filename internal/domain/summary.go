package domain

import (
	"github.com/shopspring/decimal"
)

const (
	CategoryTypeIncome  = "income"
	CategoryTypeExpense = "expense"
)

// AnalysisSummary is the aggregate stored as JSON on a statement.
type AnalysisSummary struct {
	TotalIncome      decimal.Decimal           `json:"total_income"`
	TotalExpense     decimal.Decimal           `json:"total_expense"`
	NetAmount        decimal.Decimal           `json:"net_amount"`
	TransactionCount int                       `json:"transaction_count"`
	Categories       []string                  `json:"categories"`
	CategoriesAmount map[string]CategoryAmount `json:"categories_amount"`
}

// CategoryAmount is the per-category slice of a summary.
type CategoryAmount struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
	Type             string          `json:"type"`
}

// EmptySummary returns a zeroed summary whose collections are non-nil,
// so it serializes as [] and {} rather than null.
func EmptySummary() AnalysisSummary {
	return AnalysisSummary{
		TotalIncome:      decimal.Zero,
		TotalExpense:     decimal.Zero,
		NetAmount:        decimal.Zero,
		Categories:       []string{},
		CategoriesAmount: map[string]CategoryAmount{},
	}
}

// CategoryTypeFor classifies an aggregated amount by its sign.
func CategoryTypeFor(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return CategoryTypeExpense
	}
	return CategoryTypeIncome
}
