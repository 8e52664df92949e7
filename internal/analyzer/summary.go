package analyzer

import (
	"github.com/dvloznov/statement-insights/internal/domain"
)

// Recompute overrides the model's self-reported aggregates with what was actually
// stored: the transaction count and the distinct categories of the inserted rows.
// Each category's type is derived from the sign of its total amount. Income is
// kept non-negative, expense non-positive, and net is their sum.
func Recompute(summary domain.AnalysisSummary, inserted []domain.Transaction) domain.AnalysisSummary {
	out := summary
	out.TransactionCount = len(inserted)
	out.TotalIncome = summary.TotalIncome.Abs()
	out.TotalExpense = summary.TotalExpense.Abs().Neg()
	out.NetAmount = out.TotalIncome.Add(out.TotalExpense)

	seen := make(map[string]bool, len(inserted))
	out.Categories = make([]string, 0, len(inserted))
	for _, tx := range inserted {
		if seen[tx.Category] {
			continue
		}
		seen[tx.Category] = true
		out.Categories = append(out.Categories, tx.Category)
	}

	out.CategoriesAmount = make(map[string]domain.CategoryAmount, len(summary.CategoriesAmount))
	for name, ca := range summary.CategoriesAmount {
		ca.Type = domain.CategoryTypeFor(ca.TotalAmount)
		out.CategoriesAmount[name] = ca
	}

	return out
}
