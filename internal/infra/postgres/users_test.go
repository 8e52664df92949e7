package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/statement-insights/internal/domain"
)

func TestUserRepository_Exists(t *testing.T) {
	for _, want := range []bool{true, false} {
		mock := newMock(t)
		repo := NewUserRepository(mock)
		id := gofakeit.UUID()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := repo.Exists(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestUserRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)
	created := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), strings.ToLower(email), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	u, err := repo.Create(context.Background(), "  "+strings.ToUpper(email)+" ", password)
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, strings.ToLower(email), u.Email)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "taken@example.com", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), "taken@example.com", "secret-password")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}
