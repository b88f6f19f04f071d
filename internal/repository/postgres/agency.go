package postgres

import (
	"context"
	"database/sql"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

type agencyRepository struct {
	db *sql.DB
}

func NewAgencyRepository(db *sql.DB) repository.AgencyRepository {
	return &agencyRepository{db: db}
}

const agencyColumns = `id, name, code, contact_person, email, phone, address, status, created_at, updated_at`

func scanAgency(row scanner) (*domain.Agency, error) {
	a := &domain.Agency{}
	err := row.Scan(&a.ID, &a.Name, &a.Code, &a.ContactPerson, &a.Email, &a.Phone, &a.Address, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *agencyRepository) Create(ctx context.Context, a *domain.Agency) error {
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	query := `INSERT INTO agencies (name, code, contact_person, email, phone, address, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query,
		a.Name, a.Code, a.ContactPerson, a.Email, a.Phone, a.Address, a.Status, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *agencyRepository) GetByID(ctx context.Context, id int32) (*domain.Agency, error) {
	a, err := scanAgency(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "agency")
	}
	return a, nil
}

func (r *agencyRepository) GetByCode(ctx context.Context, code string) (*domain.Agency, error) {
	a, err := scanAgency(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE code = $1`, code))
	if err != nil {
		return nil, notFound(err, "agency")
	}
	return a, nil
}

func (r *agencyRepository) List(ctx context.Context, includeInactive bool) ([]domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies`
	var args []any
	if !includeInactive {
		query += ` WHERE status = $1`
		args = append(args, domain.AgencyStatusActive)
	}
	query += ` ORDER BY name`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []domain.Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

func (r *agencyRepository) Update(ctx context.Context, a *domain.Agency) error {
	a.UpdatedAt = time.Now()
	query := `UPDATE agencies SET name=$1, contact_person=$2, email=$3, phone=$4, address=$5, status=$6, updated_at=$7 WHERE id=$8`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, a.Name, a.ContactPerson, a.Email, a.Phone, a.Address, a.Status, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("agency")
	}
	return nil
}
