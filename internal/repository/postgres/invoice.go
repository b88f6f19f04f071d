package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
)

type invoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

const invoiceColumns = `i.id, i.invoice_number, i.agency_id, i.training_program, i.participant_count, i.unit_price, i.total_amount,
	i.status, i.payment_option, i.payment_proof, i.payment_status, i.payment_version, i.due_date, i.paid_at,
	i.approved_by, i.approved_at, i.rejected_by, i.rejected_at, i.admin_notes, i.created_at, i.updated_at`

func scanInvoice(row scanner, extra ...any) (*domain.TrainingInvoice, error) {
	inv := &domain.TrainingInvoice{}
	dest := []any{&inv.ID, &inv.InvoiceNumber, &inv.AgencyID, &inv.TrainingProgram, &inv.ParticipantCount, &inv.UnitPrice, &inv.TotalAmount,
		&inv.Status, &inv.PaymentOption, storedFileColumn{&inv.PaymentProof}, &inv.PaymentStatus, &inv.PaymentVersion, &inv.DueDate, &inv.PaidAt,
		&inv.ApprovedBy, &inv.ApprovedAt, &inv.RejectedBy, &inv.RejectedAt, &inv.AdminNotes, &inv.CreatedAt, &inv.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domain.TrainingInvoice) error {
	now := time.Now()
	inv.CreatedAt, inv.UpdatedAt = now, now
	query := `INSERT INTO training_invoices (invoice_number, agency_id, training_program, participant_count, unit_price,
	          total_amount, status, payment_option, payment_status, payment_version, due_date, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	logger.DatabaseCall("INSERT", "training_invoices", "invoice_number", inv.InvoiceNumber)
	err := savepoint(ctx, "invoice_insert", func() error {
		return conn(ctx, r.db).QueryRowContext(ctx, query,
			inv.InvoiceNumber, inv.AgencyID, inv.TrainingProgram, inv.ParticipantCount, inv.UnitPrice,
			inv.TotalAmount, inv.Status, inv.PaymentOption, inv.PaymentStatus, inv.PaymentVersion, inv.DueDate, inv.CreatedAt, inv.UpdatedAt,
		).Scan(&inv.ID)
	})
	logger.DatabaseResult("INSERT", 1, err)
	return err
}

func (r *invoiceRepository) get(ctx context.Context, query string, args ...any) (*domain.TrainingInvoice, error) {
	inv, err := scanInvoice(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id int32) (*domain.TrainingInvoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM training_invoices i WHERE i.id = $1`, id)
}

func (r *invoiceRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingInvoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM training_invoices i WHERE i.id = $1 FOR UPDATE`, id)
}

// FindPendingForUpdate returns nil without error when the pair has no open invoice.
func (r *invoiceRepository) FindPendingForUpdate(ctx context.Context, agencyID int32, program string) (*domain.TrainingInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM training_invoices i
	          WHERE i.agency_id = $1 AND i.training_program = $2 AND i.status = 'pending'
	          ORDER BY i.created_at DESC LIMIT 1 FOR UPDATE`
	inv, err := scanInvoice(conn(ctx, r.db).QueryRowContext(ctx, query, agencyID, program))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func (r *invoiceRepository) Update(ctx context.Context, inv *domain.TrainingInvoice) error {
	inv.UpdatedAt = time.Now()
	query := `UPDATE training_invoices SET participant_count=$1, total_amount=$2, status=$3, payment_proof=$4,
	          payment_status=$5, payment_version=$6, paid_at=$7, approved_by=$8, approved_at=$9, rejected_by=$10,
	          rejected_at=$11, admin_notes=$12, updated_at=$13 WHERE id=$14`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, inv.ParticipantCount, inv.TotalAmount, inv.Status,
		jsonValue{inv.PaymentProof}, inv.PaymentStatus, inv.PaymentVersion, inv.PaidAt, inv.ApprovedBy, inv.ApprovedAt,
		inv.RejectedBy, inv.RejectedAt, inv.AdminNotes, inv.UpdatedAt, inv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("invoice")
	}
	return nil
}

func (r *invoiceRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM training_invoices WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	return n, err
}

func invoiceWhere(f domain.InvoiceFilter) (string, []any) {
	where := []string{"1=1"}
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.AgencyID != nil {
		add("i.agency_id = $%d", *f.AgencyID)
	}
	if f.Status != "" {
		add("i.status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add("i.payment_status = $%d", f.PaymentStatus)
	}
	if f.TrainingProgram != "" {
		add("i.training_program = $%d", f.TrainingProgram)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("i.invoice_number ILIKE $%d", "%"+s+"%")
	}
	return strings.Join(where, " AND "), args
}

func (r *invoiceRepository) List(ctx context.Context, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, error) {
	cond, args := invoiceWhere(f)

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM training_invoices i WHERE `+cond, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s, a.name, a.code FROM training_invoices i JOIN agencies a ON a.id = i.agency_id
		WHERE %s ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d`, invoiceColumns, cond, len(args)-1, len(args))

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.TrainingInvoice
	for rows.Next() {
		var name, code string
		inv, err := scanInvoice(rows, &name, &code)
		if err != nil {
			return nil, 0, err
		}
		inv.Agency = &domain.Agency{ID: inv.AgencyID, Name: name, Code: code}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *invoiceRepository) Summary(ctx context.Context, agencyID int32) (*domain.InvoiceSummary, error) {
	query := `SELECT count(*),
	                 COALESCE(SUM(total_amount), 0),
	                 COALESCE(SUM(total_amount) FILTER (WHERE status IN ('pending', 'overdue')), 0),
	                 COALESCE(SUM(total_amount) FILTER (WHERE status = 'paid'), 0),
	                 count(*) FILTER (WHERE status = 'pending'),
	                 count(*) FILTER (WHERE status = 'paid'),
	                 count(*) FILTER (WHERE status = 'overdue')
	          FROM training_invoices WHERE agency_id = $1`
	s := &domain.InvoiceSummary{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, agencyID).Scan(
		&s.TotalInvoices, &s.TotalAmount, &s.PendingAmount, &s.PaidAmount, &s.PendingCount, &s.PaidCount, &s.OverdueCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MarkOverdue flags pending invoices past their due date that have no approved payment.
func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE training_invoices SET status = 'overdue', updated_at = $1
		 WHERE status = 'pending' AND due_date < $1 AND payment_status <> 'approved'`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *invoiceRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.TrainingInvoice, error) {
	query := `SELECT ` + invoiceColumns + `, a.name, a.code, a.email FROM training_invoices i JOIN agencies a ON a.id = i.agency_id
	          WHERE i.status = 'pending' AND i.payment_proof IS NULL AND i.due_date >= $1 AND i.due_date < $2
	          ORDER BY i.due_date`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrainingInvoice
	for rows.Next() {
		a := &domain.Agency{}
		inv, err := scanInvoice(rows, &a.Name, &a.Code, &a.Email)
		if err != nil {
			return nil, err
		}
		a.ID = inv.AgencyID
		inv.Agency = a
		out = append(out, *inv)
	}
	return out, rows.Err()
}
