package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/repository/postgres"
	"smy-nav-backend/internal/storage"
	"smy-nav-backend/internal/utils"
)

const (
	invoiceAttempts  = 3
	reminderWindow   = 48 * time.Hour
	paymentProofPath = "payment-proofs"
)

type invoiceService struct {
	tx           repository.Transactor
	invoices     repository.InvoiceRepository
	participants repository.ParticipantRepository
	agencies     repository.AgencyRepository
	users        repository.UserRepository
	history      repository.PaymentHistoryRepository
	store        storage.Storage
	email        EmailService
	catalog      config.TrainingCatalog
	now          func() time.Time
}

func NewInvoiceService(tx repository.Transactor, invoices repository.InvoiceRepository, participants repository.ParticipantRepository,
	agencies repository.AgencyRepository, users repository.UserRepository, history repository.PaymentHistoryRepository,
	store storage.Storage, email EmailService, catalog config.TrainingCatalog) InvoiceService {
	return &invoiceService{
		tx:           tx,
		invoices:     invoices,
		participants: participants,
		agencies:     agencies,
		users:        users,
		history:      history,
		store:        store,
		email:        email,
		catalog:      catalog,
		now:          time.Now,
	}
}

// AttachParticipants adds participants to the open invoice of (agency, program),
// creating it when none is pending. The pending row stays locked until the
// caller's transaction ends.
func (s *invoiceService) AttachParticipants(ctx context.Context, agencyID int32, program string, participantIDs []int32, option domain.PaymentOption) (*domain.TrainingInvoice, error) {
	if len(participantIDs) == 0 {
		return nil, nil
	}
	price := s.catalog.Price(program)
	if price == 0 {
		return nil, domain.NewValidationError("Invalid training program")
	}
	if !option.Valid() {
		option = domain.PaymentOptionPayLater
	}

	var result *domain.TrainingInvoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for attempt := 0; attempt < invoiceAttempts; attempt++ {
			inv, err := s.invoices.FindPendingForUpdate(ctx, agencyID, program)
			if err != nil {
				return err
			}
			if inv != nil {
				inv.ParticipantCount += len(participantIDs)
				inv.TotalAmount += utils.LineTotal(price, len(participantIDs))
				if err := s.invoices.Update(ctx, inv); err != nil {
					return err
				}
				result = inv
				return s.participants.AttachToInvoice(ctx, participantIDs, inv.ID)
			}

			inv, err = s.newInvoice(ctx, agencyID, program, price, len(participantIDs), option, attempt)
			if err != nil {
				return err
			}
			err = s.invoices.Create(ctx, inv)
			if err == nil {
				logger.InfoContext(ctx, "Invoice created", "invoice", inv.InvoiceNumber, "agencyID", agencyID, "program", program)
				result = inv
				return s.participants.AttachToInvoice(ctx, participantIDs, inv.ID)
			}
			if !postgres.IsUniqueViolation(err, "") {
				return fmt.Errorf("create invoice: %w", err)
			}
			// A concurrent request opened the invoice or took the number first.
		}
		return fmt.Errorf("no invoice available for agency %d program %s", agencyID, program)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *invoiceService) newInvoice(ctx context.Context, agencyID int32, program string, price int64, n int, option domain.PaymentOption, offset int) (*domain.TrainingInvoice, error) {
	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	start, next := utils.MonthBounds(now)
	count, err := s.invoices.CountCreatedBetween(ctx, start, next)
	if err != nil {
		return nil, err
	}
	return &domain.TrainingInvoice{
		InvoiceNumber:    domain.InvoiceNumber(agency.Code, program, now, count+1+offset),
		AgencyID:         agencyID,
		TrainingProgram:  program,
		ParticipantCount: n,
		UnitPrice:        price,
		TotalAmount:      utils.LineTotal(price, n),
		Status:           domain.InvoiceStatusPending,
		PaymentOption:    option,
		PaymentStatus:    domain.PaymentStatusNone,
		DueDate:          domain.InvoiceDueDate(option, now),
	}, nil
}

// DetachParticipant removes a deleted participant from its still pending invoice.
// An invoice left without participants is cancelled.
func (s *invoiceService) DetachParticipant(ctx context.Context, p *domain.Participant) error {
	if p.InvoiceID == nil {
		return nil
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByIDForUpdate(ctx, *p.InvoiceID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if inv.Status != domain.InvoiceStatusPending {
			return nil
		}
		inv.ParticipantCount--
		inv.TotalAmount -= inv.UnitPrice
		if inv.ParticipantCount <= 0 {
			inv.ParticipantCount, inv.TotalAmount = 0, 0
			inv.Status = domain.InvoiceStatusCancelled
		}
		return s.invoices.Update(ctx, inv)
	})
}

func (s *invoiceService) ListForAgency(ctx context.Context, actor domain.Actor, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, *domain.InvoiceSummary, error) {
	if scope := actor.ScopeAgency(); scope != nil {
		f.AgencyID = scope
	} else if !actor.Role.IsAdmin() {
		return nil, 0, nil, domain.ErrForbidden
	}
	list, total, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, 0, nil, err
	}
	var summary *domain.InvoiceSummary
	if f.AgencyID != nil {
		if summary, err = s.invoices.Summary(ctx, *f.AgencyID); err != nil {
			return nil, 0, nil, err
		}
	}
	return list, total, summary, nil
}

func (s *invoiceService) ListAll(ctx context.Context, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, error) {
	return s.invoices.List(ctx, f)
}

func (s *invoiceService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.TrainingInvoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(actor, inv); err != nil {
		return nil, err
	}
	if inv.Participants, err = s.participants.ListByInvoice(ctx, id); err != nil {
		return nil, err
	}
	if inv.Agency, err = s.agencies.GetByID(ctx, inv.AgencyID); err != nil {
		return nil, err
	}
	return inv, nil
}

// checkAccess hides other agencies' invoices from agents.
func (s *invoiceService) checkAccess(actor domain.Actor, inv *domain.TrainingInvoice) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	if actor.AgencyID == nil || *actor.AgencyID != inv.AgencyID {
		return domain.NotFound("invoice")
	}
	return nil
}

func (s *invoiceService) UploadProof(ctx context.Context, actor domain.Actor, id int32, f *storage.File, notes string) (*domain.TrainingInvoice, error) {
	logger.EnterMethod("invoiceService.UploadProof", "invoiceID", id)

	stored, err := s.store.Save(ctx, paymentProofPath, f)
	if err != nil {
		return nil, err
	}

	var inv *domain.TrainingInvoice
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkAccess(actor, inv); err != nil {
			return err
		}
		if inv.Status != domain.InvoiceStatusPending && inv.Status != domain.InvoiceStatusOverdue {
			return &domain.StateError{
				Action:  "upload-payment-proof",
				Current: string(inv.Status),
				Message: fmt.Sprintf("payment proof cannot be uploaded for a %s invoice", inv.Status),
			}
		}
		switch inv.PaymentStatus {
		case domain.PaymentStatusNone, domain.PaymentStatusPending, domain.PaymentStatusRejected:
		default:
			return &domain.StateError{
				Action:  "upload-payment-proof",
				Current: string(inv.PaymentStatus),
				Message: fmt.Sprintf("payment proof cannot be uploaded while payment status is %q", inv.PaymentStatus),
			}
		}

		inv.PaymentVersion, inv.PaymentStatus = domain.NextPaymentSubmission(inv.PaymentOption, inv.PaymentStatus, inv.PaymentVersion, inv.PaymentProof != nil)
		inv.PaymentProof = stored
		if err := s.invoices.Update(ctx, inv); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.PaymentHistoryEntry{
			SubjectType: domain.PaymentSubjectInvoice,
			SubjectID:   inv.ID,
			Version:     inv.PaymentVersion,
			Status:      inv.PaymentStatus,
			Proof:       stored,
			Notes:       notes,
			ActorID:     &actor.UserID,
		})
	})
	if err != nil {
		s.discard(ctx, stored)
		logger.ExitMethodWithError("invoiceService.UploadProof", err)
		return nil, err
	}

	if err := s.email.SendAdminNotification(ctx, "Bukti pembayaran invoice "+inv.InvoiceNumber,
		fmt.Sprintf("Bukti pembayaran versi %d diunggah untuk invoice %s.", inv.PaymentVersion, inv.InvoiceNumber)); err != nil {
		logger.WarnContext(ctx, "Admin notification failed", "invoice", inv.InvoiceNumber, "error", err)
	}
	logger.ExitMethod("invoiceService.UploadProof", "version", inv.PaymentVersion, "status", inv.PaymentStatus)
	return inv, nil
}

func (s *invoiceService) UpdatePaymentStatus(ctx context.Context, actor domain.Actor, id int32, status domain.PaymentStatus, notes string) (*domain.TrainingInvoice, error) {
	if status != domain.PaymentStatusApproved && status != domain.PaymentStatusRejected {
		return nil, domain.NewValidationError("Payment status must be approved or rejected")
	}
	if status == domain.PaymentStatusRejected && notes == "" {
		return nil, &domain.ValidationError{Message: "Notes are required when rejecting a payment", Fields: map[string]string{"notes": "required"}}
	}

	var inv *domain.TrainingInvoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoiceStatusCancelled || !inv.PaymentStatus.AwaitingReview() {
			return &domain.StateError{
				Action:  "review-payment",
				Current: string(inv.PaymentStatus),
				Message: fmt.Sprintf("only payments awaiting review can be %s (current status %q)", status, inv.PaymentStatus),
			}
		}

		now := s.now()
		inv.PaymentStatus = status
		inv.AdminNotes = notes
		if status == domain.PaymentStatusApproved {
			inv.Status = domain.InvoiceStatusPaid
			inv.PaidAt, inv.ApprovedAt, inv.ApprovedBy = &now, &now, &actor.UserID
		} else {
			inv.RejectedAt, inv.RejectedBy = &now, &actor.UserID
		}
		if err := s.invoices.Update(ctx, inv); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.PaymentHistoryEntry{
			SubjectType: domain.PaymentSubjectInvoice,
			SubjectID:   inv.ID,
			Version:     inv.PaymentVersion,
			Status:      status,
			Proof:       inv.PaymentProof,
			Notes:       notes,
			ActorID:     &actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyAgency(ctx, inv.AgencyID, "Status pembayaran invoice "+inv.InvoiceNumber, status, notes)
	return inv, nil
}

func (s *invoiceService) History(ctx context.Context, actor domain.Actor, id int32) ([]domain.PaymentHistoryEntry, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(actor, inv); err != nil {
		return nil, err
	}
	return s.history.List(ctx, domain.PaymentSubjectInvoice, id)
}

func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.invoices.MarkOverdue(ctx, now)
}

// SendReminders emails agencies whose pending invoices fall due within two days.
func (s *invoiceService) SendReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.invoices.ListDueBetween(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		inv := &due[i]
		to := ""
		if inv.Agency != nil {
			to = inv.Agency.Email
		}
		if to == "" {
			emails, err := s.users.ListEmailsByAgency(ctx, inv.AgencyID)
			if err != nil || len(emails) == 0 {
				logger.WarnContext(ctx, "No recipient for invoice reminder", "invoice", inv.InvoiceNumber, "error", err)
				continue
			}
			to = emails[0]
		}
		if err := s.email.SendInvoiceReminder(ctx, to, inv); err != nil {
			logger.WarnContext(ctx, "Invoice reminder failed", "invoice", inv.InvoiceNumber, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *invoiceService) notifyAgency(ctx context.Context, agencyID int32, subject string, status domain.PaymentStatus, notes string) {
	emails, err := s.users.ListEmailsByAgency(ctx, agencyID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load agency recipients", "agencyID", agencyID, "error", err)
		return
	}
	if err := s.email.SendPaymentDecision(ctx, emails, subject, status, notes); err != nil {
		logger.WarnContext(ctx, "Payment decision email failed", "agencyID", agencyID, "error", err)
	}
}

func (s *invoiceService) discard(ctx context.Context, f *domain.StoredFile) {
	if err := s.store.Delete(ctx, f.PublicID); err != nil {
		logger.WarnContext(ctx, "Failed to remove orphaned upload", "publicID", f.PublicID, "error", err)
	}
}
