package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when coercing a transaction date.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

// CoerceTransaction converts one element of the model's "transactions" array into
// a storable transaction. Missing or malformed fields fall back to defaults; only
// an element that is not a JSON object is rejected.
func CoerceTransaction(item interface{}, statementID uuid.UUID, ownerID string, now time.Time) (domain.Transaction, error) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return domain.Transaction{}, fmt.Errorf("CoerceTransaction: element is %T, want object", item)
	}

	category := truncateRunes(strings.TrimSpace(cleanText(stringField(obj, "category"))), domain.MaxCategoryLength)
	if category == "" {
		category = domain.DefaultCategory
	}

	return domain.Transaction{
		StatementID: statementID,
		OwnerID:     ownerID,
		Date:        coerceDate(obj["date"], now),
		Description: truncateRunes(cleanText(stringField(obj, "description")), domain.MaxDescriptionLength),
		Amount:      boundAmount(toDecimal(obj["amount"])),
		Category:    category,
	}, nil
}

// coerceDate returns the calendar day of v, or now's day when v is not a
// recognisable date string.
func coerceDate(v interface{}, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	s, ok := v.(string)
	if !ok {
		return today
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return today
}

// toDecimal coerces a JSON number or numeric string to a decimal; anything else is zero.
func toDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// maxAmount is the largest magnitude the NUMERIC(18,2) amount column holds.
var maxAmount = decimal.RequireFromString("9999999999999999.99")

// boundAmount zeroes amounts the database could not store.
func boundAmount(d decimal.Decimal) decimal.Decimal {
	if d.Abs().GreaterThan(maxAmount) {
		return decimal.Zero
	}
	return d
}

// cleanText drops NUL bytes, which Postgres text columns reject.
func cleanText(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func toInt(v interface{}) int {
	d := toDecimal(v)
	return int(d.IntPart())
}

// stringField renders m[key] as text. Absent and null values are empty.
func stringField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// summaryFromModel reads the model's "analysis" object leniently. Fields that are
// missing or of the wrong type become zero values.
func summaryFromModel(v interface{}) domain.AnalysisSummary {
	summary := domain.EmptySummary()

	obj, ok := v.(map[string]interface{})
	if !ok {
		return summary
	}

	summary.TotalIncome = toDecimal(obj["total_income"])
	summary.TotalExpense = toDecimal(obj["total_expense"])
	summary.NetAmount = toDecimal(obj["net_amount"])
	summary.TransactionCount = toInt(obj["transaction_count"])

	if cats, ok := obj["categories"].([]interface{}); ok {
		for _, c := range cats {
			if s, ok := c.(string); ok && s != "" {
				summary.Categories = append(summary.Categories, s)
			}
		}
	}

	if amounts, ok := obj["categories_amount"].(map[string]interface{}); ok {
		for name, raw := range amounts {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			summary.CategoriesAmount[name] = domain.CategoryAmount{
				TotalAmount:      toDecimal(entry["total_amount"]),
				TransactionCount: toInt(entry["transaction_count"]),
				Type:             stringField(entry, "type"),
			}
		}
	}

	return summary
}
