package service

import (
	"context"
	"errors"
	"io"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/storage"
)

type AuthService interface {
	Register(ctx context.Context, actor domain.Actor, in RegisterUserInput) (*domain.User, error)
	Login(ctx context.Context, login, password string) (string, *domain.User, error)
	Me(ctx context.Context, userID int32) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int32, current, next string) error
	UpdateProfile(ctx context.Context, userID int32, in UpdateProfileInput) (*domain.User, error)
	RegisterParticipant(ctx context.Context, in RegisterParticipantInput) (string, *domain.User, *domain.Participant, error)
}

type AgencyService interface {
	List(ctx context.Context, includeInactive bool) ([]domain.Agency, error)
	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Agency, error)
	Create(ctx context.Context, in AgencyInput) (*domain.Agency, error)
	Update(ctx context.Context, id int32, in AgencyInput) (*domain.Agency, error)
}

type ParticipantService interface {
	Create(ctx context.Context, actor domain.Actor, in CreateParticipantInput) (*domain.Participant, error)
	AgencySubmission(ctx context.Context, actor domain.Actor, in AgencySubmissionInput) ([]domain.Participant, error)
	SelfRegister(ctx context.Context, actor domain.Actor, in ParticipantData) (*domain.Participant, error)
	List(ctx context.Context, actor domain.Actor, f domain.ParticipantFilter) ([]domain.Participant, int, error)
	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Participant, error)
	Update(ctx context.Context, actor domain.Actor, id int32, in UpdateParticipantInput) (*domain.Participant, error)
	Delete(ctx context.Context, actor domain.Actor, id int32) error
	UploadDocument(ctx context.Context, actor domain.Actor, id int32, kind string, f *storage.File) (*domain.Participant, error)
	Transition(ctx context.Context, actor domain.Actor, id int32, action domain.TransitionAction, opts TransitionOptions) (*domain.Participant, error)
}

type PaymentService interface {
	UploadProof(ctx context.Context, actor domain.Actor, participantID int32, f *storage.File, notes string) (*domain.Participant, error)
	Approve(ctx context.Context, actor domain.Actor, participantID int32, notes string) (*domain.Participant, error)
	Reject(ctx context.Context, actor domain.Actor, participantID int32, notes string) (*domain.Participant, error)
	History(ctx context.Context, actor domain.Actor, participantID int32) ([]domain.PaymentHistoryEntry, error)
}

type InvoiceService interface {
	// AttachParticipants must run inside the caller's transaction.
	AttachParticipants(ctx context.Context, agencyID int32, program string, participantIDs []int32, option domain.PaymentOption) (*domain.TrainingInvoice, error)
	DetachParticipant(ctx context.Context, p *domain.Participant) error
	ListForAgency(ctx context.Context, actor domain.Actor, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, *domain.InvoiceSummary, error)
	ListAll(ctx context.Context, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, error)
	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.TrainingInvoice, error)
	UploadProof(ctx context.Context, actor domain.Actor, id int32, f *storage.File, notes string) (*domain.TrainingInvoice, error)
	UpdatePaymentStatus(ctx context.Context, actor domain.Actor, id int32, status domain.PaymentStatus, notes string) (*domain.TrainingInvoice, error)
	History(ctx context.Context, actor domain.Actor, id int32) ([]domain.PaymentHistoryEntry, error)
	Export(ctx context.Context, f domain.InvoiceFilter, w io.Writer) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

type ScheduleService interface {
	List(ctx context.Context, f domain.ScheduleFilter) ([]domain.TrainingSchedule, int, error)
	Get(ctx context.Context, id int32) (*domain.TrainingSchedule, error)
	Create(ctx context.Context, actor domain.Actor, in ScheduleInput) (*domain.TrainingSchedule, error)
	Update(ctx context.Context, id int32, in ScheduleInput) (*domain.TrainingSchedule, error)
	Delete(ctx context.Context, id int32) error
	AddParticipants(ctx context.Context, actor domain.Actor, scheduleID int32, participantIDs []int32) ([]domain.ScheduleParticipant, error)
	RemoveParticipant(ctx context.Context, scheduleID, participantID int32) error
	ListParticipants(ctx context.Context, scheduleID int32) ([]domain.ScheduleParticipant, error)
	ActiveForProgram(ctx context.Context, program string) ([]domain.TrainingSchedule, error)
}

type BatchService interface {
	List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error)
	Get(ctx context.Context, id int32) (*domain.TrainingBatch, error)
	Create(ctx context.Context, in BatchInput) (*domain.TrainingBatch, error)
	Update(ctx context.Context, id int32, in BatchInput) (*domain.TrainingBatch, error)
	Delete(ctx context.Context, id int32) error
	// Assign places p in a batch of its program inside the caller's transaction.
	Assign(ctx context.Context, p *domain.Participant, batchID *int32) (*domain.TrainingBatch, error)
	SendToCenter(ctx context.Context, actor domain.Actor, id int32) (*domain.TrainingBatch, int64, error)
	Overview(ctx context.Context) (*domain.BatchOverview, error)
	PromoteReady(ctx context.Context) (int64, error)
}

type DashboardService interface {
	Stats(ctx context.Context, actor domain.Actor) (*domain.DashboardStats, error)
	Activities(ctx context.Context, actor domain.Actor, limit int) ([]domain.Activity, error)
	Progress(ctx context.Context, actor domain.Actor) (*domain.DashboardProgress, error)
}

type EmailService interface {
	SendPaymentDecision(ctx context.Context, to []string, subject string, status domain.PaymentStatus, notes string) error
	SendInvoiceReminder(ctx context.Context, to string, inv *domain.TrainingInvoice) error
	SendAdminNotification(ctx context.Context, subject, message string) error
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
