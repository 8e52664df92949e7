package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-insights/internal/domain"
)

type mockModel struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockModel) Generate(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFunc(ctx, prompt)
}

type mockTransactions struct {
	ListFunc func(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error)
}

func (m *mockTransactions) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
	return m.ListFunc(ctx, ownerID, limit)
}

type mockStatements struct {
	ListFunc func(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error)
}

func (m *mockStatements) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error) {
	return m.ListFunc(ctx, ownerID, limit)
}

func TestAsk(t *testing.T) {
	description := gofakeit.Company()
	summary := domain.EmptySummary()
	summary.TotalIncome = decimal.NewFromInt(1000)

	var gotPrompt string
	svc := NewService(
		&mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "  You spent 250 on food.  ", nil
		}},
		&mockTransactions{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
			assert.Equal(t, "u1", ownerID)
			assert.Equal(t, MaxContextTransactions, limit)
			return []domain.Transaction{{
				Date:        time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
				Description: description,
				Amount:      decimal.NewFromInt(-250),
				Category:    "Food",
			}}, nil
		}},
		&mockStatements{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error) {
			return []domain.Statement{
				{ID: uuid.New(), AnalysisSummary: &summary},
				{ID: uuid.New()},
			}, nil
		}},
	)

	answer, err := svc.Ask(context.Background(), "u1", "How much did I spend on food?")
	require.NoError(t, err)
	assert.Equal(t, "You spent 250 on food.", answer)

	assert.Contains(t, gotPrompt, "You are assisting user with ID: u1.")
	assert.Contains(t, gotPrompt, "- Date: 2024-01-03, Description: "+description+", Amount: -250, Category: Food")
	assert.Contains(t, gotPrompt, `"total_income": "1000"`)
	assert.Contains(t, gotPrompt, `User question: "How much did I spend on food?"`)
	assert.Contains(t, gotPrompt, "Max 120 words")
}

func TestAsk_MissingFields(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.Ask(context.Background(), "u1", "  ")
	assert.ErrorIs(t, err, ErrMissingQuestion)

	_, err = svc.Ask(context.Background(), "", "hello?")
	assert.ErrorIs(t, err, ErrMissingOwner)
}

func TestAsk_Errors(t *testing.T) {
	noTxs := &mockTransactions{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
		return nil, nil
	}}
	noStatements := &mockStatements{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error) {
		return nil, nil
	}}

	tests := []struct {
		name    string
		svc     *Service
		wantErr string
	}{
		{
			name: "transactions",
			svc: NewService(nil, &mockTransactions{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
				return nil, errors.New("db down")
			}}, noStatements),
			wantErr: "load transactions: db down",
		},
		{
			name: "statements",
			svc: NewService(nil, noTxs, &mockStatements{ListFunc: func(ctx context.Context, ownerID string, limit int) ([]domain.Statement, error) {
				return nil, errors.New("db down")
			}}),
			wantErr: "load statements: db down",
		},
		{
			name: "model",
			svc: NewService(&mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("quota")
			}}, noTxs, noStatements),
			wantErr: "generate answer: quota",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Ask(context.Background(), "u1", "anything")
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
