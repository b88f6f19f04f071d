package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository/postgres"
)

func TestTransactor(t *testing.T) {
	t.Run("Commit joins repository calls", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		tx := postgres.NewTransactor(db)
		repo := postgres.NewParticipantRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM participants p WHERE p.id = \\$1 FOR UPDATE").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows(participantCols).AddRow(participantValues(1, "draft")...))
		mock.ExpectCommit()

		err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
			_, err := repo.GetByIDForUpdate(ctx, 1)
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("wrong state")
		err = postgres.NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nested call reuses transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		tx := postgres.NewTransactor(db)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
			return tx.WithinTx(ctx, func(ctx context.Context) error { return nil })
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "participants_nik_key"}
	assert.True(t, postgres.IsUniqueViolation(err, ""))
	assert.True(t, postgres.IsUniqueViolation(err, "participants_nik_key"))
	assert.False(t, postgres.IsUniqueViolation(err, "participants_registration_number_key"))
	assert.False(t, postgres.IsUniqueViolation(errors.New("x"), ""))
	assert.False(t, postgres.IsUniqueViolation(domain.ErrNotFound, ""))
}

func TestPaymentHistoryRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewPaymentHistoryRepository(db)
	ctx := context.Background()
	actor := int32(2)

	t.Run("Append", func(t *testing.T) {
		e := &domain.PaymentHistoryEntry{
			SubjectType: domain.PaymentSubjectParticipant,
			SubjectID:   10,
			Version:     1,
			Status:      domain.PaymentStatusRejected,
			Notes:       "Bukti tidak jelas",
			ActorID:     &actor,
		}
		mock.ExpectQuery("INSERT INTO payment_history").
			WithArgs(domain.PaymentSubjectParticipant, int32(10), 1, domain.PaymentStatusRejected, nil, "Bukti tidak jelas", &actor, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		require.NoError(t, repo.Append(ctx, e))
		assert.Equal(t, int32(5), e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	})

	t.Run("List", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "subject_type", "subject_id", "version", "status", "proof", "notes", "actor_id", "created_at"}).
			AddRow(1, "participant", 10, 1, "pending", []byte(`{"url":"/u/p.png","public_id":"p","format":"png","bytes":10}`), "", 7, sqlmockNow()).
			AddRow(2, "participant", 10, 1, "rejected", nil, "Bukti tidak jelas", 2, sqlmockNow())
		mock.ExpectQuery("SELECT (.+) FROM payment_history WHERE subject_type = \\$1 AND subject_id = \\$2 ORDER BY id").
			WithArgs(domain.PaymentSubjectParticipant, int32(10)).
			WillReturnRows(rows)

		entries, err := repo.List(ctx, domain.PaymentSubjectParticipant, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.NotNil(t, entries[0].Proof)
		assert.Equal(t, "/u/p.png", entries[0].Proof.URL)
		assert.Nil(t, entries[1].Proof)
		assert.Equal(t, domain.PaymentStatusRejected, entries[1].Status)
	})
}

func TestParticipantRepository_CreateInsideTxUsesSavepoint(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewParticipantRepository(db)
	dup := &pq.Error{Code: "23505", Constraint: "participants_registration_number_key"}

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT participant_insert").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO participants").WillReturnError(dup)
	mock.ExpectExec("ROLLBACK TO SAVEPOINT participant_insert").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT participant_insert").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO participants").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectExec("RELEASE SAVEPOINT participant_insert").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = postgres.NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		p := &domain.Participant{FullName: "Budi", TrainingProgram: "BST", Status: domain.ParticipantStatusDraft}
		first := repo.Create(ctx, p)
		assert.True(t, postgres.IsUniqueViolation(first, "participants_registration_number_key"))
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		assert.Equal(t, int32(8), p.ID)
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
