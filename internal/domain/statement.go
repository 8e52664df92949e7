package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StatementStatus is the processing state persisted on a statement row.
type StatementStatus string

const (
	StatusProcessing StatementStatus = "PROCESSING"
	StatusCompleted  StatementStatus = "COMPLETED"
	StatusFailed     StatementStatus = "FAILED"
)

// DefaultOwnerID is used when neither object metadata nor the storage key name an owner.
const DefaultOwnerID = "default_user"

var (
	// ErrStatementNotFound is returned when no statement row matches the lookup.
	ErrStatementNotFound = errors.New("statement not found")

	// ErrOwnerNotRegistered is returned when a statement owner has no users row.
	ErrOwnerNotRegistered = errors.New("owner is not registered")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Statement is one uploaded bank-statement document.
// A re-upload of the same StorageKey reuses the row.
type Statement struct {
	ID              uuid.UUID        `json:"statement_id"`
	OwnerID         string           `json:"user_id"`
	StorageKey      string           `json:"storage_key"`
	Status          StatementStatus  `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	AnalysisSummary *AnalysisSummary `json:"analysis_summary,omitempty"`
}

// User is a registered statement owner.
type User struct {
	ID           string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
