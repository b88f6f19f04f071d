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

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `s.id, s.training_program, s.name, s.start_date, s.end_date, s.location, s.instructor,
	s.max_participants, s.description, s.status, s.created_by, s.created_at, s.updated_at,
	(SELECT count(*) FROM schedule_participants sp WHERE sp.schedule_id = s.id)`

func scanSchedule(row scanner) (*domain.TrainingSchedule, error) {
	s := &domain.TrainingSchedule{}
	err := row.Scan(&s.ID, &s.TrainingProgram, &s.Name, &s.StartDate, &s.EndDate, &s.Location, &s.Instructor,
		&s.MaxParticipants, &s.Description, &s.Status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &s.ParticipantCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, s *domain.TrainingSchedule) error {
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	query := `INSERT INTO training_schedules (training_program, name, start_date, end_date, location, instructor,
	          max_participants, description, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query,
		s.TrainingProgram, s.Name, s.StartDate, s.EndDate, s.Location, s.Instructor,
		s.MaxParticipants, s.Description, s.Status, s.CreatedBy, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int32) (*domain.TrainingSchedule, error) {
	s, err := scanSchedule(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM training_schedules s WHERE s.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "schedule")
	}
	return s, nil
}

func (r *scheduleRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingSchedule, error) {
	s, err := scanSchedule(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM training_schedules s WHERE s.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "schedule")
	}
	return s, nil
}

func (r *scheduleRepository) List(ctx context.Context, f domain.ScheduleFilter) ([]domain.TrainingSchedule, int, error) {
	where := []string{"1=1"}
	var args []any
	if f.TrainingProgram != "" {
		args = append(args, f.TrainingProgram)
		where = append(where, fmt.Sprintf("s.training_program = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM training_schedules s WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM training_schedules s WHERE %s ORDER BY s.start_date ASC LIMIT $%d OFFSET $%d`,
		scheduleColumns, cond, len(args)-1, len(args))

	schedules, err := r.query(ctx, query, args...)
	return schedules, total, err
}

func (r *scheduleRepository) ListActive(ctx context.Context, program string, today time.Time) ([]domain.TrainingSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM training_schedules s
	          WHERE s.training_program = $1 AND s.status IN ('scheduled', 'ongoing') AND s.end_date >= $2
	          ORDER BY s.start_date ASC`
	return r.query(ctx, query, program, today)
}

func (r *scheduleRepository) query(ctx context.Context, query string, args ...any) ([]domain.TrainingSchedule, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrainingSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *scheduleRepository) Update(ctx context.Context, s *domain.TrainingSchedule) error {
	s.UpdatedAt = time.Now()
	query := `UPDATE training_schedules SET training_program=$1, name=$2, start_date=$3, end_date=$4, location=$5,
	          instructor=$6, max_participants=$7, description=$8, status=$9, updated_at=$10 WHERE id=$11`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, s.TrainingProgram, s.Name, s.StartDate, s.EndDate, s.Location,
		s.Instructor, s.MaxParticipants, s.Description, s.Status, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("schedule")
	}
	return nil
}

// Delete removes the schedule and its assignments.
func (r *scheduleRepository) Delete(ctx context.Context, id int32) error {
	c := conn(ctx, r.db)
	if _, err := c.ExecContext(ctx, `DELETE FROM schedule_participants WHERE schedule_id = $1`, id); err != nil {
		return err
	}
	res, err := c.ExecContext(ctx, `DELETE FROM training_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("schedule")
	}
	return nil
}

func (r *scheduleRepository) NameExists(ctx context.Context, program, name string, excludeID int32) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM training_schedules WHERE training_program = $1 AND LOWER(name) = LOWER($2) AND id <> $3)`,
		program, name, excludeID).Scan(&exists)
	return exists, err
}

func (r *scheduleRepository) AddParticipant(ctx context.Context, sp *domain.ScheduleParticipant) error {
	if sp.AssignedAt.IsZero() {
		sp.AssignedAt = time.Now()
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO schedule_participants (schedule_id, participant_id, assigned_at, assigned_by) VALUES ($1, $2, $3, $4)`,
		sp.ScheduleID, sp.ParticipantID, sp.AssignedAt, sp.AssignedBy)
	return err
}

func (r *scheduleRepository) RemoveParticipant(ctx context.Context, scheduleID, participantID int32) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM schedule_participants WHERE schedule_id = $1 AND participant_id = $2`, scheduleID, participantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *scheduleRepository) ListParticipants(ctx context.Context, scheduleID int32) ([]domain.ScheduleParticipant, error) {
	query := `SELECT sp.schedule_id, sp.participant_id, sp.assigned_at, sp.assigned_by,
	                 p.registration_number, p.full_name, p.training_program, p.status, p.agency_id
	          FROM schedule_participants sp JOIN participants p ON p.id = sp.participant_id
	          WHERE sp.schedule_id = $1 ORDER BY sp.assigned_at`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduleParticipant
	for rows.Next() {
		sp := domain.ScheduleParticipant{Participant: &domain.Participant{}}
		p := sp.Participant
		if err := rows.Scan(&sp.ScheduleID, &sp.ParticipantID, &sp.AssignedAt, &sp.AssignedBy,
			&p.RegistrationNumber, &p.FullName, &p.TrainingProgram, &p.Status, &p.AgencyID); err != nil {
			return nil, err
		}
		p.ID = sp.ParticipantID
		p.SyncProgress()
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (r *scheduleRepository) AssignedScheduleID(ctx context.Context, participantID int32) (*int32, error) {
	var id int32
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT schedule_id FROM schedule_participants WHERE participant_id = $1`, participantID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
