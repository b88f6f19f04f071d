package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
)

type dashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) repository.DashboardRepository {
	return &dashboardRepository{db: db}
}

func participantScope(agencyID *int32, excludeDraft bool) (string, []any) {
	where := []string{"1=1"}
	var args []any
	if agencyID != nil {
		args = append(args, *agencyID)
		where = append(where, fmt.Sprintf("p.agency_id = $%d", len(args)))
	}
	if excludeDraft {
		where = append(where, "p.status <> 'draft'")
	}
	return strings.Join(where, " AND "), args
}

func (r *dashboardRepository) CountParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, from, to *time.Time) (int, error) {
	cond, args := participantScope(agencyID, excludeDraft)
	if from != nil {
		args = append(args, *from)
		cond += fmt.Sprintf(" AND p.created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		cond += fmt.Sprintf(" AND p.created_at < $%d", len(args))
	}
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM participants p WHERE `+cond, args...).Scan(&n)
	return n, err
}

func (r *dashboardRepository) CountByStatus(ctx context.Context, agencyID *int32) (map[domain.ParticipantStatus]int, error) {
	cond, args := participantScope(agencyID, false)
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT p.status, count(*) FROM participants p WHERE `+cond+` GROUP BY p.status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.ParticipantStatus]int{}
	for rows.Next() {
		var s domain.ParticipantStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *dashboardRepository) AverageProgress(ctx context.Context, agencyID *int32, excludeDraft bool) (float64, error) {
	cond, args := participantScope(agencyID, excludeDraft)
	var avg float64
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COALESCE(AVG(p.progress_percentage), 0) FROM participants p WHERE `+cond, args...).Scan(&avg)
	return avg, err
}

func (r *dashboardRepository) CountActiveSchedules(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM training_schedules WHERE status IN ('scheduled', 'ongoing') AND end_date >= $1`, now).Scan(&n)
	return n, err
}

func (r *dashboardRepository) PaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	query := `SELECT
	            (SELECT count(*) FROM participants WHERE payment_status IN ('pending', 'resubmitted')),
	            (SELECT count(*) FROM participants WHERE payment_status = 'approved'),
	            (SELECT COALESCE(SUM(total_amount), 0) FROM training_invoices WHERE status = 'paid')`
	s := &domain.PaymentStats{}
	if err := conn(ctx, r.db).QueryRowContext(ctx, query).Scan(&s.PendingPayments, &s.ApprovedPayments, &s.TotalRevenue); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *dashboardRepository) RecentParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, limit int) ([]domain.Participant, error) {
	cond, args := participantScope(agencyID, excludeDraft)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT p.id, p.registration_number, p.full_name, p.training_program, p.status, p.updated_at, COALESCE(a.name, '')
		FROM participants p LEFT JOIN agencies a ON a.id = p.agency_id
		WHERE %s ORDER BY p.updated_at DESC LIMIT $%d`, cond, len(args))

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		var agencyName string
		if err := rows.Scan(&p.ID, &p.RegistrationNumber, &p.FullName, &p.TrainingProgram, &p.Status, &p.UpdatedAt, &agencyName); err != nil {
			return nil, err
		}
		if agencyName != "" {
			p.Agency = &domain.Agency{Name: agencyName}
		}
		p.SyncProgress()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *dashboardRepository) UpcomingSchedules(ctx context.Context, now time.Time, limit int) ([]domain.TrainingSchedule, error) {
	query := `SELECT s.id, s.training_program, s.name, s.start_date, s.end_date, s.status, s.created_at
	          FROM training_schedules s WHERE s.start_date >= $1 AND s.status = 'scheduled'
	          ORDER BY s.start_date LIMIT $2`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrainingSchedule
	for rows.Next() {
		var s domain.TrainingSchedule
		if err := rows.Scan(&s.ID, &s.TrainingProgram, &s.Name, &s.StartDate, &s.EndDate, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
