package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/storage"
)

// fakeTx runs fn in place.
type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserRepo) EmailTakenByOther(ctx context.Context, email string, excludeID int32) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserRepo) UpdateProfile(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *MockUserRepo) UpdatePassword(ctx context.Context, id int32, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}
func (m *MockUserRepo) UpdateLastLogin(ctx context.Context, id int32, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockUserRepo) ListEmailsByAgency(ctx context.Context, agencyID int32) ([]string, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAgencyRepo
type MockAgencyRepo struct {
	mock.Mock
}

func (m *MockAgencyRepo) Create(ctx context.Context, a *domain.Agency) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAgencyRepo) GetByID(ctx context.Context, id int32) (*domain.Agency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agency), args.Error(1)
}
func (m *MockAgencyRepo) GetByCode(ctx context.Context, code string) (*domain.Agency, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agency), args.Error(1)
}
func (m *MockAgencyRepo) List(ctx context.Context, includeInactive bool) ([]domain.Agency, error) {
	args := m.Called(ctx, includeInactive)
	return args.Get(0).([]domain.Agency), args.Error(1)
}
func (m *MockAgencyRepo) Update(ctx context.Context, a *domain.Agency) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// MockParticipantRepo
type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockParticipantRepo) GetByID(ctx context.Context, id int32) (*domain.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}
func (m *MockParticipantRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}
func (m *MockParticipantRepo) GetByCreator(ctx context.Context, userID int32) (*domain.Participant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}
func (m *MockParticipantRepo) Update(ctx context.Context, p *domain.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockParticipantRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockParticipantRepo) List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Participant), args.Int(1), args.Error(2)
}
func (m *MockParticipantRepo) NIKExists(ctx context.Context, nik string, excludeID int32) (bool, error) {
	args := m.Called(ctx, nik, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *MockParticipantRepo) MaxRegistrationSequence(ctx context.Context, agencyCode, program string) (int, error) {
	args := m.Called(ctx, agencyCode, program)
	return args.Int(0), args.Error(1)
}
func (m *MockParticipantRepo) AttachToInvoice(ctx context.Context, ids []int32, invoiceID int32) error {
	args := m.Called(ctx, ids, invoiceID)
	return args.Error(0)
}
func (m *MockParticipantRepo) ListByInvoice(ctx context.Context, invoiceID int32) ([]domain.Participant, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]domain.Participant), args.Error(1)
}
func (m *MockParticipantRepo) ListByBatch(ctx context.Context, batchID int32) ([]domain.Participant, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]domain.Participant), args.Error(1)
}
func (m *MockParticipantRepo) TransitionByBatch(ctx context.Context, batchID int32, from, to domain.ParticipantStatus) (int64, error) {
	args := m.Called(ctx, batchID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// MockHistoryRepo
type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) Append(ctx context.Context, e *domain.PaymentHistoryEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *MockHistoryRepo) List(ctx context.Context, subject domain.PaymentSubject, subjectID int32) ([]domain.PaymentHistoryEntry, error) {
	args := m.Called(ctx, subject, subjectID)
	return args.Get(0).([]domain.PaymentHistoryEntry), args.Error(1)
}

// MockInvoiceRepo
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, inv *domain.TrainingInvoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}
func (m *MockInvoiceRepo) GetByID(ctx context.Context, id int32) (*domain.TrainingInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingInvoice), args.Error(1)
}
func (m *MockInvoiceRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingInvoice), args.Error(1)
}
func (m *MockInvoiceRepo) FindPendingForUpdate(ctx context.Context, agencyID int32, program string) (*domain.TrainingInvoice, error) {
	args := m.Called(ctx, agencyID, program)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingInvoice), args.Error(1)
}
func (m *MockInvoiceRepo) Update(ctx context.Context, inv *domain.TrainingInvoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}
func (m *MockInvoiceRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}
func (m *MockInvoiceRepo) List(ctx context.Context, f domain.InvoiceFilter) ([]domain.TrainingInvoice, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.TrainingInvoice), args.Int(1), args.Error(2)
}
func (m *MockInvoiceRepo) Summary(ctx context.Context, agencyID int32) (*domain.InvoiceSummary, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceSummary), args.Error(1)
}
func (m *MockInvoiceRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockInvoiceRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.TrainingInvoice, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.TrainingInvoice), args.Error(1)
}

// MockBatchRepo
type MockBatchRepo struct {
	mock.Mock
}

func (m *MockBatchRepo) Create(ctx context.Context, b *domain.TrainingBatch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBatchRepo) GetByID(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingBatch), args.Error(1)
}
func (m *MockBatchRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingBatch), args.Error(1)
}
func (m *MockBatchRepo) FindFormingForUpdate(ctx context.Context, program string) (*domain.TrainingBatch, error) {
	args := m.Called(ctx, program)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingBatch), args.Error(1)
}
func (m *MockBatchRepo) List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.TrainingBatch), args.Error(1)
}
func (m *MockBatchRepo) Update(ctx context.Context, b *domain.TrainingBatch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBatchRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockBatchRepo) NextSequence(ctx context.Context, program string, year int) (int, error) {
	args := m.Called(ctx, program, year)
	return args.Int(0), args.Error(1)
}
func (m *MockBatchRepo) Overview(ctx context.Context) (*domain.BatchOverview, error) {
	args := m.Called(ctx)
	return args.Get(0).(*domain.BatchOverview), args.Error(1)
}
func (m *MockBatchRepo) PromoteReady(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockScheduleRepo
type MockScheduleRepo struct {
	mock.Mock
}

func (m *MockScheduleRepo) Create(ctx context.Context, s *domain.TrainingSchedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *MockScheduleRepo) GetByID(ctx context.Context, id int32) (*domain.TrainingSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingSchedule), args.Error(1)
}
func (m *MockScheduleRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.TrainingSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingSchedule), args.Error(1)
}
func (m *MockScheduleRepo) List(ctx context.Context, f domain.ScheduleFilter) ([]domain.TrainingSchedule, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.TrainingSchedule), args.Int(1), args.Error(2)
}
func (m *MockScheduleRepo) ListActive(ctx context.Context, program string, today time.Time) ([]domain.TrainingSchedule, error) {
	args := m.Called(ctx, program, today)
	return args.Get(0).([]domain.TrainingSchedule), args.Error(1)
}
func (m *MockScheduleRepo) Update(ctx context.Context, s *domain.TrainingSchedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *MockScheduleRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockScheduleRepo) NameExists(ctx context.Context, program, name string, excludeID int32) (bool, error) {
	args := m.Called(ctx, program, name, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *MockScheduleRepo) AddParticipant(ctx context.Context, sp *domain.ScheduleParticipant) error {
	args := m.Called(ctx, sp)
	return args.Error(0)
}
func (m *MockScheduleRepo) RemoveParticipant(ctx context.Context, scheduleID, participantID int32) (bool, error) {
	args := m.Called(ctx, scheduleID, participantID)
	return args.Bool(0), args.Error(1)
}
func (m *MockScheduleRepo) ListParticipants(ctx context.Context, scheduleID int32) ([]domain.ScheduleParticipant, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).([]domain.ScheduleParticipant), args.Error(1)
}
func (m *MockScheduleRepo) AssignedScheduleID(ctx context.Context, participantID int32) (*int32, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int32), args.Error(1)
}

// MockDashboardRepo
type MockDashboardRepo struct {
	mock.Mock
}

func (m *MockDashboardRepo) CountParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, from, to *time.Time) (int, error) {
	args := m.Called(ctx, agencyID, excludeDraft, from, to)
	return args.Int(0), args.Error(1)
}
func (m *MockDashboardRepo) CountByStatus(ctx context.Context, agencyID *int32) (map[domain.ParticipantStatus]int, error) {
	args := m.Called(ctx, agencyID)
	return args.Get(0).(map[domain.ParticipantStatus]int), args.Error(1)
}
func (m *MockDashboardRepo) AverageProgress(ctx context.Context, agencyID *int32, excludeDraft bool) (float64, error) {
	args := m.Called(ctx, agencyID, excludeDraft)
	return args.Get(0).(float64), args.Error(1)
}
func (m *MockDashboardRepo) CountActiveSchedules(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
func (m *MockDashboardRepo) PaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentStats), args.Error(1)
}
func (m *MockDashboardRepo) RecentParticipants(ctx context.Context, agencyID *int32, excludeDraft bool, limit int) ([]domain.Participant, error) {
	args := m.Called(ctx, agencyID, excludeDraft, limit)
	return args.Get(0).([]domain.Participant), args.Error(1)
}
func (m *MockDashboardRepo) UpcomingSchedules(ctx context.Context, now time.Time, limit int) ([]domain.TrainingSchedule, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.TrainingSchedule), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPaymentDecision(ctx context.Context, to []string, subject string, status domain.PaymentStatus, notes string) error {
	args := m.Called(ctx, to, subject, status, notes)
	return args.Error(0)
}
func (m *MockEmailService) SendInvoiceReminder(ctx context.Context, to string, inv *domain.TrainingInvoice) error {
	args := m.Called(ctx, to, inv)
	return args.Error(0)
}
func (m *MockEmailService) SendAdminNotification(ctx context.Context, subject, message string) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

// MockTokenManager
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAccessToken(u *domain.User) (string, error) {
	args := m.Called(u)
	return args.String(0), args.Error(1)
}
func (m *MockTokenManager) ValidateToken(token string) (*security.UserClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.UserClaims), args.Error(1)
}

// memStore keeps saved files in memory and records deletions.
type memStore struct {
	mu      sync.Mutex
	n       int
	saved   map[string]*storage.File
	deleted []string
	failAt  int
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*storage.File{}}
}

func (s *memStore) Save(_ context.Context, folder string, f *storage.File) (*domain.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if s.failAt > 0 && s.n == s.failAt {
		return nil, fmt.Errorf("disk full")
	}
	id := fmt.Sprintf("%s/%d%s", folder, s.n, f.Ext)
	s.saved[id] = f
	return &domain.StoredFile{
		URL:              "http://files.test/uploads/" + id,
		PublicID:         id,
		OriginalFilename: f.Filename,
		Format:           f.Ext,
		Bytes:            int64(len(f.Data)),
	}, nil
}

func (s *memStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, publicID)
	s.deleted = append(s.deleted, publicID)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func pdf(field string) *storage.File {
	return &storage.File{Field: field, Filename: field + ".pdf", MIME: "application/pdf", Ext: ".pdf", Data: []byte("%PDF-1.4")}
}

func docs(kinds ...string) []*storage.File {
	out := make([]*storage.File, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, pdf(k))
	}
	return out
}

func int32p(v int32) *int32 { return &v }
