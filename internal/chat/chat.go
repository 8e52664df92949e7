// Package chat answers an owner's questions about their own statements.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/llm"
	"github.com/dvloznov/statement-insights/internal/logger"
)

const (
	// SystemPrompt is the model's system instruction for every chat turn.
	SystemPrompt = "You are a helpful financial assistant. Be concise, clear, and avoid filler."

	// MaxTokens caps the answer length.
	MaxTokens = 200

	// Context limits keep the prompt bounded for heavy users.
	MaxContextTransactions = 500
	MaxContextStatements   = 50
)

var (
	ErrMissingQuestion = errors.New("missing 'question' in the request body")
	ErrMissingOwner    = errors.New("missing 'user_id' in the request body")
)

// TransactionLister loads an owner's transactions.
type TransactionLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error)
}

// StatementLister loads an owner's statements.
type StatementLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error)
}

// Service grounds model answers in the owner's stored data.
type Service struct {
	model        llm.Model
	transactions TransactionLister
	statements   StatementLister
}

func NewService(model llm.Model, transactions TransactionLister, statements StatementLister) *Service {
	return &Service{model: model, transactions: transactions, statements: statements}
}

// Ask answers question for ownerID.
func (s *Service) Ask(ctx context.Context, ownerID, question string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrMissingQuestion
	}
	if ownerID == "" {
		return "", ErrMissingOwner
	}

	log := logger.FromContext(ctx).With().Str("owner_id", ownerID).Logger()

	txs, err := s.transactions.ListByOwner(ctx, ownerID, MaxContextTransactions)
	if err != nil {
		return "", fmt.Errorf("load transactions: %w", err)
	}
	statements, err := s.statements.ListByOwner(ctx, ownerID, MaxContextStatements)
	if err != nil {
		return "", fmt.Errorf("load statements: %w", err)
	}

	prompt, err := buildPrompt(ownerID, question, txs, statements)
	if err != nil {
		return "", err
	}

	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	log.Debug().Int("transactions", len(txs)).Int("statements", len(statements)).Msg("chat answered")
	return strings.TrimSpace(answer), nil
}
