package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, actor domain.Actor, in service.RegisterUserInput) (*domain.User, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockAuthService) Login(ctx context.Context, login, password string) (string, *domain.User, error) {
	args := m.Called(ctx, login, password)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.User), args.Error(2)
}
func (m *MockAuthService) Me(ctx context.Context, userID int32) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockAuthService) ChangePassword(ctx context.Context, userID int32, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}
func (m *MockAuthService) UpdateProfile(ctx context.Context, userID int32, in service.UpdateProfileInput) (*domain.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockAuthService) RegisterParticipant(ctx context.Context, in service.RegisterParticipantInput) (string, *domain.User, *domain.Participant, error) {
	args := m.Called(ctx, in)
	if args.Get(1) == nil {
		return "", nil, nil, args.Error(3)
	}
	return args.String(0), args.Get(1).(*domain.User), args.Get(2).(*domain.Participant), args.Error(3)
}

type MockParticipantService struct {
	mock.Mock
}

func (m *MockParticipantService) participant(args mock.Arguments) (*domain.Participant, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantService) Create(ctx context.Context, actor domain.Actor, in service.CreateParticipantInput) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, in))
}
func (m *MockParticipantService) AgencySubmission(ctx context.Context, actor domain.Actor, in service.AgencySubmissionInput) ([]domain.Participant, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Participant), args.Error(1)
}
func (m *MockParticipantService) SelfRegister(ctx context.Context, actor domain.Actor, in service.ParticipantData) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, in))
}
func (m *MockParticipantService) List(ctx context.Context, actor domain.Actor, f domain.ParticipantFilter) ([]domain.Participant, int, error) {
	args := m.Called(ctx, actor, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Participant), args.Int(1), args.Error(2)
}
func (m *MockParticipantService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, id))
}
func (m *MockParticipantService) Update(ctx context.Context, actor domain.Actor, id int32, in service.UpdateParticipantInput) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, id, in))
}
func (m *MockParticipantService) Delete(ctx context.Context, actor domain.Actor, id int32) error {
	return m.Called(ctx, actor, id).Error(0)
}
func (m *MockParticipantService) UploadDocument(ctx context.Context, actor domain.Actor, id int32, kind string, f *storage.File) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, id, kind, f))
}
func (m *MockParticipantService) Transition(ctx context.Context, actor domain.Actor, id int32, action domain.TransitionAction, opts service.TransitionOptions) (*domain.Participant, error) {
	return m.participant(m.Called(ctx, actor, id, action, opts))
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) batch(args mock.Arguments) (*domain.TrainingBatch, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingBatch), args.Error(1)
}

func (m *MockBatchService) List(ctx context.Context, f domain.BatchFilter) ([]domain.TrainingBatch, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrainingBatch), args.Error(1)
}
func (m *MockBatchService) Get(ctx context.Context, id int32) (*domain.TrainingBatch, error) {
	return m.batch(m.Called(ctx, id))
}
func (m *MockBatchService) Create(ctx context.Context, in service.BatchInput) (*domain.TrainingBatch, error) {
	return m.batch(m.Called(ctx, in))
}
func (m *MockBatchService) Update(ctx context.Context, id int32, in service.BatchInput) (*domain.TrainingBatch, error) {
	return m.batch(m.Called(ctx, id, in))
}
func (m *MockBatchService) Delete(ctx context.Context, id int32) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockBatchService) Assign(ctx context.Context, p *domain.Participant, batchID *int32) (*domain.TrainingBatch, error) {
	return m.batch(m.Called(ctx, p, batchID))
}
func (m *MockBatchService) SendToCenter(ctx context.Context, actor domain.Actor, id int32) (*domain.TrainingBatch, int64, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.TrainingBatch), args.Get(1).(int64), args.Error(2)
}
func (m *MockBatchService) Overview(ctx context.Context) (*domain.BatchOverview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchOverview), args.Error(1)
}
func (m *MockBatchService) PromoteReady(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
