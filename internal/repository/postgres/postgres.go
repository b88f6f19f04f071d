package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx, falling back to the pool.
func conn(ctx context.Context, db *sql.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// savepoint runs fn so that its failure does not abort the surrounding
// transaction. Outside a transaction fn runs directly.
func savepoint(ctx context.Context, name string, fn func() error) error {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok {
		return fn()
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			logger.ErrorContext(ctx, "Rollback to savepoint failed", "savepoint", name, "error", rbErr)
		}
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.AgencyRepository
	repository.ParticipantRepository
	repository.PaymentHistoryRepository
	repository.ScheduleRepository
	repository.BatchRepository
	repository.InvoiceRepository
	repository.DashboardRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                       db,
		UserRepository:           NewUserRepository(db),
		AgencyRepository:         NewAgencyRepository(db),
		ParticipantRepository:    NewParticipantRepository(db),
		PaymentHistoryRepository: NewPaymentHistoryRepository(db),
		ScheduleRepository:       NewScheduleRepository(db),
		BatchRepository:          NewBatchRepository(db),
		InvoiceRepository:        NewInvoiceRepository(db),
		DashboardRepository:      NewDashboardRepository(db),
	}
}

// Transactor exposes the store's transaction runner.
func (s *Store) Transactor() repository.Transactor {
	return NewTransactor(s.db)
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) repository.Transactor {
	return &transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise. Nested calls
// reuse the outer transaction.
func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation,
// optionally restricted to one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}

func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity)
	}
	return err
}

// jsonValue stores a value as JSONB. A nil file is NULL and a nil document map is {}.
type jsonValue struct {
	v any
}

func (j jsonValue) Value() (driver.Value, error) {
	switch v := j.v.(type) {
	case nil:
		return nil, nil
	case *domain.StoredFile:
		if v == nil {
			return nil, nil
		}
	case map[string]domain.StoredFile:
		if v == nil {
			return "{}", nil
		}
	}
	b, err := json.Marshal(j.v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// storedFileColumn scans a nullable JSONB column into a *StoredFile.
type storedFileColumn struct {
	dst **domain.StoredFile
}

func (c storedFileColumn) Scan(src any) error {
	b, ok := asBytes(src)
	if !ok || len(b) == 0 {
		*c.dst = nil
		return nil
	}
	var f domain.StoredFile
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c.dst = &f
	return nil
}

type documentsColumn struct {
	dst *map[string]domain.StoredFile
}

func (c documentsColumn) Scan(src any) error {
	*c.dst = map[string]domain.StoredFile{}
	b, ok := asBytes(src)
	if !ok || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, c.dst)
}

func asBytes(src any) ([]byte, bool) {
	switch v := src.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}

// statusStrings converts typed statuses for pq.Array.
func statusStrings(ss []domain.ParticipantStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
