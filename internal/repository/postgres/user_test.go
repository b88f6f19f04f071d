package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository/postgres"
)

func TestUserRepository_EmailTakenByOther(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewUserRepository(db)
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\) AND id <> \\$2\\)").
		WithArgs("agen@abadi.co.id", int32(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.EmailTakenByOther(context.Background(), "agen@abadi.co.id", 7)
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		u := &domain.User{ID: 7, FullName: "Agen Abadi", Email: "agen@abadi.co.id"}
		mock.ExpectExec("UPDATE users SET full_name = \\$1, email = \\$2, updated_at = \\$3 WHERE id = \\$4").
			WithArgs("Agen Abadi", "agen@abadi.co.id", sqlmock.AnyArg(), int32(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateProfile(ctx, u))
		assert.False(t, u.UpdatedAt.IsZero())
	})

	t.Run("Missing user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.UpdateProfile(ctx, &domain.User{ID: 404})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
