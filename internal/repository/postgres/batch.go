package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

type batchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) repository.BatchRepository {
	return &batchRepository{db: db}
}

const batchColumns = `b.id, b.batch_number, b.training_program, b.year, b.sequence, b.min_participants, b.max_participants,
	b.status, b.sent_to_center_at, b.sent_to_center_by, b.created_at, b.updated_at,
	(SELECT count(*) FROM participants p WHERE p.batch_id = b.id)`

func scanBatch(row scanner) (*domain.TrainingBatch, error) {
	b := &domain.TrainingBatch{}
	err := row.Scan(&b.ID, &b.BatchNumber, &b.TrainingProgram, &b.Year, &b.Sequence, &b.MinParticipants, &b.MaxParticipants,
		&b.Status, &b.SentToCenterAt, &b.SentToCenterBy, &b.CreatedAt, &b.UpdatedAt, &b.ParticipantCount)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *batchRepository) Create(ctx context.Context, b *domain.TrainingBatch) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	query := `INSERT INTO training_batches (batch_number, training_program, year, sequence, min_participants, max_participants, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	return savepoint(ctx, "batch_insert", func() error {
		return conn(ctx, r.db).QueryRowContext(ctx, query,
			b.BatchNumber, b.TrainingProgram, b.Year, b.Sequence, b.MinParticipants, b.MaxParticipants, b.Status, b.CreatedAt, b.UpdatedAt,
		).Scan(&b.ID)
	})
}

func (r *batchRepository) GetByID(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	b, err := scanBatch(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+batchColumns+` FROM training_batches b WHERE b.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "batch")
	}
	return b, nil
}

func (r *batchRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	b, err := scanBatch(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+batchColumns+` FROM training_batches b WHERE b.id = $1 FOR UPDATE OF b`, id))
	if err != nil {
		return nil, notFound(err, "batch")
	}
	return b, nil
}

// FindFormingForUpdate returns nil without error when no batch has room.
func (r *batchRepository) FindFormingForUpdate(ctx context.Context, program string) (*domain.TrainingBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM training_batches b
	          WHERE b.training_program = $1 AND b.status IN ('forming', 'ready')
	            AND (SELECT count(*) FROM participants p WHERE p.batch_id = b.id) < b.max_participants
	          ORDER BY b.year, b.sequence LIMIT 1 FOR UPDATE OF b`
	b, err := scanBatch(conn(ctx, r.db).QueryRowContext(ctx, query, program))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *batchRepository) List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error) {
	where := []string{"1=1"}
	var args []any
	if f.TrainingProgram != "" {
		args = append(args, f.TrainingProgram)
		where = append(where, fmt.Sprintf("b.training_program = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		where = append(where, fmt.Sprintf("b.year = $%d", len(args)))
	}
	query := `SELECT ` + batchColumns + ` FROM training_batches b WHERE ` + strings.Join(where, " AND ") + ` ORDER BY b.created_at DESC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrainingBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *batchRepository) Update(ctx context.Context, b *domain.TrainingBatch) error {
	b.UpdatedAt = time.Now()
	query := `UPDATE training_batches SET min_participants=$1, max_participants=$2, status=$3, sent_to_center_at=$4,
	          sent_to_center_by=$5, updated_at=$6 WHERE id=$7`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, b.MinParticipants, b.MaxParticipants, b.Status, b.SentToCenterAt,
		b.SentToCenterBy, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("batch")
	}
	return nil
}

func (r *batchRepository) Delete(ctx context.Context, id int32) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM training_batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("batch")
	}
	return nil
}

func (r *batchRepository) NextSequence(ctx context.Context, program string, year int) (int, error) {
	var max int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM training_batches WHERE training_program = $1 AND year = $2`,
		program, year).Scan(&max)
	return max + 1, err
}

func (r *batchRepository) Overview(ctx context.Context) (*domain.BatchOverview, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, training_program, count(*) FROM training_batches GROUP BY status, training_program`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ov := &domain.BatchOverview{ByStatus: map[string]int{}, ByProgram: map[string]int{}}
	for rows.Next() {
		var status, program string
		var n int
		if err := rows.Scan(&status, &program, &n); err != nil {
			return nil, err
		}
		ov.ByStatus[status] += n
		ov.ByProgram[program] += n
		ov.Total += n
	}
	return ov, rows.Err()
}

// PromoteReady marks forming batches that reached their minimum as ready.
func (r *batchRepository) PromoteReady(ctx context.Context) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE training_batches b SET status = 'ready', updated_at = $1
		 WHERE b.status = 'forming' AND (SELECT count(*) FROM participants p WHERE p.batch_id = b.id) >= b.min_participants`,
		time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
