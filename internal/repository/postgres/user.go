package postgres

import (
	"context"
	"database/sql"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, role, agency_id, is_active, last_login, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.AgencyID, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	query := `INSERT INTO users (username, email, password_hash, full_name, role, agency_id, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.AgencyID, u.IsActive, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	return scanUser(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR LOWER(email) = LOWER($1)`
	return scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, login))
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *userRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	return exists, err
}

func (r *userRepository) EmailTakenByOther(ctx context.Context, email string, excludeID int32) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`, email, excludeID).Scan(&exists)
	return exists, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now()
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET full_name = $1, email = $2, updated_at = $3 WHERE id = $4`, u.FullName, u.Email, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int32, hash string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, time.Now(), id)
	return err
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int32, at time.Time) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return err
}

func (r *userRepository) ListEmailsByAgency(ctx context.Context, agencyID int32) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT email FROM users WHERE agency_id = $1 AND role = $2 AND is_active ORDER BY id`, agencyID, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
