package postgres

import (
	"context"
	"database/sql"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

type paymentHistoryRepository struct {
	db *sql.DB
}

func NewPaymentHistoryRepository(db *sql.DB) repository.PaymentHistoryRepository {
	return &paymentHistoryRepository{db: db}
}

// Append inserts one entry. Entries are never updated or deleted.
func (r *paymentHistoryRepository) Append(ctx context.Context, e *domain.PaymentHistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `INSERT INTO payment_history (subject_type, subject_id, version, status, proof, notes, actor_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query,
		e.SubjectType, e.SubjectID, e.Version, e.Status, jsonValue{e.Proof}, e.Notes, e.ActorID, e.CreatedAt,
	).Scan(&e.ID)
}

func (r *paymentHistoryRepository) List(ctx context.Context, subject domain.PaymentSubject, subjectID int32) ([]domain.PaymentHistoryEntry, error) {
	query := `SELECT id, subject_type, subject_id, version, status, proof, notes, actor_id, created_at
	          FROM payment_history WHERE subject_type = $1 AND subject_id = $2 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, subject, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PaymentHistoryEntry
	for rows.Next() {
		var e domain.PaymentHistoryEntry
		if err := rows.Scan(&e.ID, &e.SubjectType, &e.SubjectID, &e.Version, &e.Status, storedFileColumn{&e.Proof}, &e.Notes, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
