package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxDescriptionLength bounds the stored transaction description.
	MaxDescriptionLength = 500
	// MaxCategoryLength bounds the stored category label.
	MaxCategoryLength = 100
	// DefaultCategory is used when the model did not classify a transaction.
	DefaultCategory = "Other"
)

// Transaction is one row extracted from a statement.
// Amount is signed: negative for money out, positive for money in.
type Transaction struct {
	StatementID uuid.UUID       `json:"statement_id"`
	OwnerID     string          `json:"user_id"`
	Date        time.Time       `json:"transaction_date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}
