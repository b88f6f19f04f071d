package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/storage"
)

type paymentService struct {
	tx           repository.Transactor
	participants repository.ParticipantRepository
	history      repository.PaymentHistoryRepository
	users        repository.UserRepository
	store        storage.Storage
	email        EmailService
	now          func() time.Time
}

func NewPaymentService(tx repository.Transactor, participants repository.ParticipantRepository, history repository.PaymentHistoryRepository,
	users repository.UserRepository, store storage.Storage, email EmailService) PaymentService {
	return &paymentService{
		tx:           tx,
		participants: participants,
		history:      history,
		users:        users,
		store:        store,
		email:        email,
		now:          time.Now,
	}
}

// UploadProof stores a new proof version for the participant and appends it to
// the payment history.
func (s *paymentService) UploadProof(ctx context.Context, actor domain.Actor, participantID int32, f *storage.File, notes string) (*domain.Participant, error) {
	logger.EnterMethod("paymentService.UploadProof", "participantID", participantID)

	if f == nil {
		return nil, &domain.ValidationError{Message: "Payment proof file is required", Fields: map[string]string{domain.FieldPaymentProof: "required"}}
	}
	stored, err := s.store.Save(ctx, paymentProofPath, f)
	if err != nil {
		return nil, err
	}

	var p *domain.Participant
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.participants.GetByIDForUpdate(ctx, participantID); err != nil {
			return err
		}
		if !canAccess(actor, p) {
			return domain.NotFound("participant")
		}
		if p.PaymentStatus == domain.PaymentStatusApproved {
			return &domain.StateError{
				Action:  "upload-payment-proof",
				Current: string(p.PaymentStatus),
				Message: "Payment has already been approved",
			}
		}

		p.PaymentVersion, p.PaymentStatus = domain.NextPaymentSubmission(p.PaymentOption, p.PaymentStatus, p.PaymentVersion, p.PaymentProof != nil)
		p.PaymentProof = stored
		p.PaymentNotes = notes
		if err := s.participants.Update(ctx, p); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.PaymentHistoryEntry{
			SubjectType: domain.PaymentSubjectParticipant,
			SubjectID:   p.ID,
			Version:     p.PaymentVersion,
			Status:      p.PaymentStatus,
			Proof:       stored,
			Notes:       notes,
			ActorID:     &actor.UserID,
		})
	})
	if err != nil {
		if derr := s.store.Delete(ctx, stored.PublicID); derr != nil {
			logger.WarnContext(ctx, "Failed to remove orphaned upload", "publicID", stored.PublicID, "error", derr)
		}
		logger.ExitMethodWithError("paymentService.UploadProof", err)
		return nil, err
	}

	if err := s.email.SendAdminNotification(ctx, "Bukti pembayaran "+p.RegistrationNumber,
		fmt.Sprintf("Bukti pembayaran versi %d diunggah untuk peserta %s (%s).", p.PaymentVersion, p.FullName, p.RegistrationNumber)); err != nil {
		logger.WarnContext(ctx, "Admin notification failed", "participantID", p.ID, "error", err)
	}
	logger.ExitMethod("paymentService.UploadProof", "version", p.PaymentVersion, "status", p.PaymentStatus)
	return p, nil
}

func (s *paymentService) Approve(ctx context.Context, actor domain.Actor, participantID int32, notes string) (*domain.Participant, error) {
	return s.decide(ctx, actor, participantID, domain.PaymentStatusApproved, notes)
}

func (s *paymentService) Reject(ctx context.Context, actor domain.Actor, participantID int32, notes string) (*domain.Participant, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, &domain.ValidationError{Message: "Notes are required when rejecting a payment", Fields: map[string]string{"notes": "required"}}
	}
	return s.decide(ctx, actor, participantID, domain.PaymentStatusRejected, notes)
}

func (s *paymentService) decide(ctx context.Context, actor domain.Actor, participantID int32, status domain.PaymentStatus, notes string) (*domain.Participant, error) {
	if !actor.Role.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	var p *domain.Participant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.participants.GetByIDForUpdate(ctx, participantID); err != nil {
			return err
		}
		if !p.PaymentStatus.AwaitingReview() {
			return &domain.StateError{
				Action:  "review-payment",
				Current: string(p.PaymentStatus),
				Message: fmt.Sprintf("only payments awaiting review can be %s (current status %q)", status, p.PaymentStatus),
			}
		}

		now := s.now()
		p.PaymentStatus = status
		p.PaymentNotes = notes
		if status == domain.PaymentStatusApproved {
			p.PaymentApprovedAt, p.PaymentApprovedBy = &now, &actor.UserID
		} else {
			p.PaymentRejectedAt, p.PaymentRejectedBy = &now, &actor.UserID
		}
		if err := s.participants.Update(ctx, p); err != nil {
			return err
		}
		return s.history.Append(ctx, &domain.PaymentHistoryEntry{
			SubjectType: domain.PaymentSubjectParticipant,
			SubjectID:   p.ID,
			Version:     p.PaymentVersion,
			Status:      status,
			Proof:       p.PaymentProof,
			Notes:       notes,
			ActorID:     &actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Payment reviewed", "registration_number", p.RegistrationNumber, "status", status, "version", p.PaymentVersion)
	s.notify(ctx, p, status, notes)
	return p, nil
}

// notify tells the owning agency, or the participant for walk-ins, about the decision.
func (s *paymentService) notify(ctx context.Context, p *domain.Participant, status domain.PaymentStatus, notes string) {
	var to []string
	if p.AgencyID != nil {
		emails, err := s.users.ListEmailsByAgency(ctx, *p.AgencyID)
		if err != nil {
			logger.WarnContext(ctx, "Failed to load agency recipients", "agencyID", *p.AgencyID, "error", err)
		}
		to = emails
	} else if p.Email != "" {
		to = []string{p.Email}
	}
	if len(to) == 0 {
		return
	}
	subject := fmt.Sprintf("Status pembayaran %s (%s)", p.FullName, p.RegistrationNumber)
	if err := s.email.SendPaymentDecision(ctx, to, subject, status, notes); err != nil {
		logger.WarnContext(ctx, "Payment decision email failed", "participantID", p.ID, "error", err)
	}
}

func (s *paymentService) History(ctx context.Context, actor domain.Actor, participantID int32) ([]domain.PaymentHistoryEntry, error) {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, p) {
		return nil, domain.NotFound("participant")
	}
	return s.history.List(ctx, domain.PaymentSubjectParticipant, participantID)
}
