package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
)

const participantColumns = `p.id, p.registration_number, p.full_name, p.nik, p.email, p.phone, p.birth_place, p.birth_date,
	p.gender, p.address, p.seafarer_code, p.mother_name, p.training_program, p.status, p.current_progress_step,
	p.progress_percentage, p.documents, p.rejection_reason, p.payment_option, p.payment_proof, p.payment_status,
	p.payment_version, p.payment_notes, p.payment_approved_at, p.payment_approved_by, p.payment_rejected_at,
	p.payment_rejected_by, p.agency_id, p.batch_id, p.invoice_id, p.created_by, p.verified_at, p.verified_by,
	p.created_at, p.updated_at, p.bst_certificate_waived`

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (*domain.Participant, error) {
	p := &domain.Participant{}
	err := row.Scan(&p.ID, &p.RegistrationNumber, &p.FullName, &p.NIK, &p.Email, &p.Phone, &p.BirthPlace, &p.BirthDate,
		&p.Gender, &p.Address, &p.SeafarerCode, &p.MotherName, &p.TrainingProgram, &p.Status, &p.CurrentStep,
		&p.ProgressPercentage, documentsColumn{&p.Documents}, &p.RejectionReason, &p.PaymentOption, storedFileColumn{&p.PaymentProof}, &p.PaymentStatus,
		&p.PaymentVersion, &p.PaymentNotes, &p.PaymentApprovedAt, &p.PaymentApprovedBy, &p.PaymentRejectedAt,
		&p.PaymentRejectedBy, &p.AgencyID, &p.BatchID, &p.InvoiceID, &p.CreatedBy, &p.VerifiedAt, &p.VerifiedBy,
		&p.CreatedAt, &p.UpdatedAt, &p.BSTCertificateWaived)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type participantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	p.SyncProgress()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `INSERT INTO participants (registration_number, full_name, nik, email, phone, birth_place, birth_date, gender,
		address, seafarer_code, mother_name, training_program, status, current_progress_step, progress_percentage,
		documents, payment_option, payment_proof, payment_status, payment_version, agency_id, created_by, created_at, updated_at,
		bst_certificate_waived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id`
	logger.DatabaseCall("INSERT", "participants", "registration_number", p.RegistrationNumber)
	// Unique violations are retried by callers, so keep the transaction usable.
	err := savepoint(ctx, "participant_insert", func() error {
		return conn(ctx, r.db).QueryRowContext(ctx, query,
			p.RegistrationNumber, p.FullName, p.NIK, p.Email, p.Phone, p.BirthPlace, p.BirthDate, p.Gender,
			p.Address, p.SeafarerCode, p.MotherName, p.TrainingProgram, p.Status, p.CurrentStep, p.ProgressPercentage,
			jsonValue{p.Documents}, p.PaymentOption, jsonValue{p.PaymentProof}, p.PaymentStatus, p.PaymentVersion,
			p.AgencyID, p.CreatedBy, p.CreatedAt, p.UpdatedAt, p.BSTCertificateWaived,
		).Scan(&p.ID)
	})
	logger.DatabaseResult("INSERT", 1, err)
	return err
}

func (r *participantRepository) get(ctx context.Context, query string, args ...any) (*domain.Participant, error) {
	p, err := scanParticipant(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "participant")
	}
	return p, nil
}

func (r *participantRepository) GetByID(ctx context.Context, id int32) (*domain.Participant, error) {
	return r.get(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.id = $1`, id)
}

func (r *participantRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Participant, error) {
	return r.get(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.id = $1 FOR UPDATE`, id)
}

func (r *participantRepository) GetByCreator(ctx context.Context, userID int32) (*domain.Participant, error) {
	return r.get(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.created_by = $1 ORDER BY p.id LIMIT 1`, userID)
}

// Update writes every mutable column. Progress columns always follow status.
func (r *participantRepository) Update(ctx context.Context, p *domain.Participant) error {
	p.SyncProgress()
	p.UpdatedAt = time.Now()

	query := `UPDATE participants SET full_name=$1, nik=$2, email=$3, phone=$4, birth_place=$5, birth_date=$6, gender=$7,
		address=$8, seafarer_code=$9, mother_name=$10, training_program=$11, status=$12, current_progress_step=$13,
		progress_percentage=$14, documents=$15, rejection_reason=$16, payment_option=$17, payment_proof=$18,
		payment_status=$19, payment_version=$20, payment_notes=$21, payment_approved_at=$22, payment_approved_by=$23,
		payment_rejected_at=$24, payment_rejected_by=$25, batch_id=$26, invoice_id=$27, verified_at=$28, verified_by=$29,
		updated_at=$30
		WHERE id=$31`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.FullName, p.NIK, p.Email, p.Phone, p.BirthPlace, p.BirthDate, p.Gender,
		p.Address, p.SeafarerCode, p.MotherName, p.TrainingProgram, p.Status, p.CurrentStep,
		p.ProgressPercentage, jsonValue{p.Documents}, p.RejectionReason, p.PaymentOption, jsonValue{p.PaymentProof},
		p.PaymentStatus, p.PaymentVersion, p.PaymentNotes, p.PaymentApprovedAt, p.PaymentApprovedBy,
		p.PaymentRejectedAt, p.PaymentRejectedBy, p.BatchID, p.InvoiceID, p.VerifiedAt, p.VerifiedBy,
		p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("participant")
	}
	return nil
}

func (r *participantRepository) Delete(ctx context.Context, id int32) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("participant")
	}
	return nil
}

func (r *participantRepository) List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, int, error) {
	where := []string{"1=1"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AgencyID != nil {
		where = append(where, "p.agency_id = "+arg(*f.AgencyID))
	}
	if f.TrainingProgram != "" {
		where = append(where, "p.training_program = "+arg(f.TrainingProgram))
	}
	if len(f.Statuses) > 0 {
		where = append(where, "p.status = ANY("+arg(pq.Array(statusStrings(f.Statuses)))+")")
	} else if f.ExcludeDraft {
		where = append(where, "p.status <> "+arg(domain.ParticipantStatusDraft))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		ph := arg("%" + s + "%")
		where = append(where, fmt.Sprintf("(p.full_name ILIKE %s OR p.nik ILIKE %s OR p.registration_number ILIKE %s)", ph, ph, ph))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM participants p WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	query := `SELECT ` + participantColumns + `, a.name, a.code FROM participants p
		LEFT JOIN agencies a ON a.id = p.agency_id
		WHERE ` + cond + ` ORDER BY p.created_at DESC, p.id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, agency, err := scanParticipantWithAgency(rows)
		if err != nil {
			return nil, 0, err
		}
		p.Agency = agency
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func scanParticipantWithAgency(rows *sql.Rows) (*domain.Participant, *domain.Agency, error) {
	var name, code sql.NullString
	p := &domain.Participant{}
	err := rows.Scan(&p.ID, &p.RegistrationNumber, &p.FullName, &p.NIK, &p.Email, &p.Phone, &p.BirthPlace, &p.BirthDate,
		&p.Gender, &p.Address, &p.SeafarerCode, &p.MotherName, &p.TrainingProgram, &p.Status, &p.CurrentStep,
		&p.ProgressPercentage, documentsColumn{&p.Documents}, &p.RejectionReason, &p.PaymentOption, storedFileColumn{&p.PaymentProof}, &p.PaymentStatus,
		&p.PaymentVersion, &p.PaymentNotes, &p.PaymentApprovedAt, &p.PaymentApprovedBy, &p.PaymentRejectedAt,
		&p.PaymentRejectedBy, &p.AgencyID, &p.BatchID, &p.InvoiceID, &p.CreatedBy, &p.VerifiedAt, &p.VerifiedBy,
		&p.CreatedAt, &p.UpdatedAt, &p.BSTCertificateWaived, &name, &code)
	if err != nil {
		return nil, nil, err
	}
	if !name.Valid || p.AgencyID == nil {
		return p, nil, nil
	}
	return p, &domain.Agency{ID: *p.AgencyID, Name: name.String, Code: code.String}, nil
}

func (r *participantRepository) NIKExists(ctx context.Context, nik string, excludeID int32) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE nik = $1 AND id <> $2)`, nik, excludeID).Scan(&exists)
	return exists, err
}

// MaxRegistrationSequence scans SMY-{code}-{seq}-{program} numbers of the pair.
func (r *participantRepository) MaxRegistrationSequence(ctx context.Context, agencyCode, program string) (int, error) {
	pattern := "^SMY-" + regexp.QuoteMeta(agencyCode) + "-[0-9]+-" + regexp.QuoteMeta(program) + "$"
	var max int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(split_part(registration_number, '-', 3)::int), 0) FROM participants WHERE registration_number ~ $1`,
		pattern).Scan(&max)
	return max, err
}

func (r *participantRepository) AttachToInvoice(ctx context.Context, ids []int32, invoiceID int32) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE participants SET invoice_id = $1, updated_at = $2 WHERE id = ANY($3)`,
		invoiceID, time.Now(), pq.Array(ids))
	return err
}

func (r *participantRepository) list(ctx context.Context, query string, args ...any) ([]domain.Participant, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *participantRepository) ListByInvoice(ctx context.Context, invoiceID int32) ([]domain.Participant, error) {
	return r.list(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.invoice_id = $1 ORDER BY p.id`, invoiceID)
}

func (r *participantRepository) ListByBatch(ctx context.Context, batchID int32) ([]domain.Participant, error) {
	return r.list(ctx, `SELECT `+participantColumns+` FROM participants p WHERE p.batch_id = $1 ORDER BY p.id`, batchID)
}

func (r *participantRepository) TransitionByBatch(ctx context.Context, batchID int32, from, to domain.ParticipantStatus) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE participants SET status = $1, progress_percentage = $2, current_progress_step = $3, updated_at = $4
		 WHERE batch_id = $5 AND status = $6`,
		to, domain.ProgressFor(to), domain.StepFor(to), time.Now(), batchID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
