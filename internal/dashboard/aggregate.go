package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// CategoryTotal is one category merged across several statements.
type CategoryTotal struct {
	Name   string
	Amount decimal.Decimal
	Count  int
}

// Totals is the aggregate shown on a dashboard.
type Totals struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetAmount    decimal.Decimal
	Transactions int
	// Categories is ordered by descending absolute Amount. Equal amounts keep
	// the order in which the categories were first seen.
	Categories []CategoryTotal
}

// Aggregate sums the summaries of statements. Statements without a summary
// are ignored.
func Aggregate(statements []domain.Statement) Totals {
	t := Totals{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		NetAmount:    decimal.Zero,
	}
	index := map[string]int{}

	for _, s := range statements {
		sum := s.AnalysisSummary
		if sum == nil {
			continue
		}
		t.TotalIncome = t.TotalIncome.Add(sum.TotalIncome)
		t.TotalExpense = t.TotalExpense.Add(sum.TotalExpense)
		t.NetAmount = t.NetAmount.Add(sum.NetAmount)
		t.Transactions += sum.TransactionCount

		for _, name := range categoryOrder(sum) {
			ca := sum.CategoriesAmount[name]
			i, ok := index[name]
			if !ok {
				index[name] = len(t.Categories)
				t.Categories = append(t.Categories, CategoryTotal{Name: name, Amount: decimal.Zero})
				i = len(t.Categories) - 1
			}
			t.Categories[i].Amount = t.Categories[i].Amount.Add(ca.TotalAmount)
			t.Categories[i].Count += ca.TransactionCount
		}
	}

	sort.SliceStable(t.Categories, func(i, j int) bool {
		return t.Categories[i].Amount.Abs().GreaterThan(t.Categories[j].Amount.Abs())
	})
	return t
}

// categoryOrder lists the keys of sum.CategoriesAmount: first in the order of
// sum.Categories, then any remaining keys alphabetically.
func categoryOrder(sum *domain.AnalysisSummary) []string {
	seen := make(map[string]bool, len(sum.CategoriesAmount))
	names := make([]string, 0, len(sum.CategoriesAmount))

	for _, name := range sum.Categories {
		if _, ok := sum.CategoriesAmount[name]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var rest []string
	for name := range sum.CategoriesAmount {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
