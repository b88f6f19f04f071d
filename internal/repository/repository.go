package repository

import (
	"context"
	"time"

	"smy-nav-backend/internal/domain"
)

// Transactor runs fn inside one database transaction. Repository calls made
// with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	EmailTakenByOther(ctx context.Context, email string, excludeID int32) (bool, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id int32, hash string) error
	UpdateLastLogin(ctx context.Context, id int32, at time.Time) error
	ListEmailsByAgency(ctx context.Context, agencyID int32) ([]string, error)
}

type AgencyRepository interface {
	Create(ctx context.Context, a *domain.Agency) error
	GetByID(ctx context.Context, id int32) (*domain.Agency, error)
	GetByCode(ctx context.Context, code string) (*domain.Agency, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Agency, error)
	Update(ctx context.Context, a *domain.Agency) error
}

type ParticipantRepository interface {
	Create(ctx context.Context, p *domain.Participant) error
	GetByID(ctx context.Context, id int32) (*domain.Participant, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Participant, error)
	GetByCreator(ctx context.Context, userID int32) (*domain.Participant, error)
	Update(ctx context.Context, p *domain.Participant) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, int, error)
	NIKExists(ctx context.Context, nik string, excludeID int32) (bool, error)
	MaxRegistrationSequence(ctx context.Context, agencyCode, program string) (int, error)
	AttachToInvoice(ctx context.Context, ids []int32, invoiceID int32) error
	ListByInvoice(ctx context.Context, invoiceID int32) ([]domain.Participant, error)
	ListByBatch(ctx context.Context, batchID int32) ([]domain.Participant, error)
	// TransitionByBatch moves every participant of the batch in status from to status to.
	TransitionByBatch(ctx context.Context, batchID int32, from, to domain.ParticipantStatus) (int64, error)
}

// PaymentHistoryRepository is append-only.
type PaymentHistoryRepository interface {
	Append(ctx context.Context, e *domain.PaymentHistoryEntry) error
	List(ctx context.Context, subject domain.PaymentSubject, subjectID int32) ([]domain.PaymentHistoryEntry, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.TrainingSchedule) error
	GetByID(ctx context.Context, id int32) (*domain.TrainingSchedule, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingSchedule, error)
	List(ctx context.Context, f domain.ScheduleFilter) ([]domain.TrainingSchedule, int, error)
	ListActive(ctx context.Context, program string, today time.Time) ([]domain.TrainingSchedule, error)
	Update(ctx context.Context, s *domain.TrainingSchedule) error
	Delete(ctx context.Context, id int32) error
	NameExists(ctx context.Context, program, name string, excludeID int32) (bool, error)
	AddParticipant(ctx context.Context, sp *domain.ScheduleParticipant) error
	RemoveParticipant(ctx context.Context, scheduleID, participantID int32) (bool, error)
	ListParticipants(ctx context.Context, scheduleID int32) ([]domain.ScheduleParticipant, error)
	// AssignedScheduleID returns the schedule holding the participant, if any.
	AssignedScheduleID(ctx context.Context, participantID int32) (*int32, error)
}

type BatchRepository interface {
	Create(ctx context.Context, b *domain.TrainingBatch) error
	GetByID(ctx context.Context, id int32) (*domain.TrainingBatch, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingBatch, error)
	// FindFormingForUpdate returns the oldest forming batch of the program with room left.
	FindFormingForUpdate(ctx context.Context, program string) (*domain.TrainingBatch, error)
	List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error)
	Update(ctx context.Context, b *domain.TrainingBatch) error
	Delete(ctx context.Context, id int32) error
	NextSequence(ctx context.Context, program string, year int) (int, error)
	Overview(ctx context.Context) (*domain.BatchOverview, error)
	PromoteReady(ctx context.Context) (int64, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.TrainingInvoice) error
	GetByID(ctx context.Context, id int32) (*domain.TrainingInvoice, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingInvoice, error)
	FindPendingForUpdate(ctx context.Context, agencyID int32, program string) (*domain.TrainingInvoice, error)
	Update(ctx context.Context, inv *domain.TrainingInvoice) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	List(ctx context.Context, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, error)
	Summary(ctx context.Context, agencyID int32) (*domain.InvoiceSummary, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.TrainingInvoice, error)
}

type DashboardRepository interface {
	CountParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, from, to *time.Time) (int, error)
	CountByStatus(ctx context.Context, agencyID *int32) (map[domain.ParticipantStatus]int, error)
	AverageProgress(ctx context.Context, agencyID *int32, excludeDraft bool) (float64, error)
	CountActiveSchedules(ctx context.Context, now time.Time) (int, error)
	PaymentStats(ctx context.Context) (*domain.PaymentStats, error)
	RecentParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, limit int) ([]domain.Participant, error)
	UpcomingSchedules(ctx context.Context, now time.Time, limit int) ([]domain.TrainingSchedule, error)
}
