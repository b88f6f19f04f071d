package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

func newBatchService() (service.BatchService, *MockBatchRepo, *MockParticipantRepo) {
	batches := new(MockBatchRepo)
	participants := new(MockParticipantRepo)
	svc := service.NewBatchService(&fakeTx{}, batches, participants, config.DefaultCatalog(), config.BatchConfig{})
	return svc, batches, participants
}

func TestBatchService_Create(t *testing.T) {
	svc, batches, _ := newBatchService()
	year := time.Now().Year()
	batches.On("NextSequence", mock.Anything, "BST", year).Return(3, nil).Once()
	batches.On("NextSequence", mock.Anything, "BST", year).Return(4, nil).Once()
	batches.On("Create", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"}).Once()
	batches.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	b, err := svc.Create(context.Background(), service.BatchInput{TrainingProgram: "BST"})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchNumber("BST", year, 4), b.BatchNumber)
	assert.Equal(t, domain.DefaultBatchMin, b.MinParticipants)
	assert.Equal(t, domain.DefaultBatchMax, b.MaxParticipants)
	assert.Equal(t, domain.BatchStatusForming, b.Status)

	_, err = svc.Create(context.Background(), service.BatchInput{TrainingProgram: "BST", MinParticipants: 30, MaxParticipants: 20})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBatchService_AssignOpensBatchWhenNoneHasRoom(t *testing.T) {
	svc, batches, _ := newBatchService()
	batches.On("FindFormingForUpdate", mock.Anything, "PSCRB").Return(nil, nil)
	batches.On("NextSequence", mock.Anything, "PSCRB", time.Now().Year()).Return(1, nil)
	batches.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.TrainingBatch).ID = 12 }).
		Return(nil)

	p := &domain.Participant{ID: 5, TrainingProgram: "PSCRB"}
	b, err := svc.Assign(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(12), *p.BatchID)
	assert.Equal(t, 1, b.ParticipantCount)
	assert.Equal(t, domain.BatchStatusForming, b.Status)
	batches.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBatchService_AssignToChosenBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("program must match", func(t *testing.T) {
		svc, batches, _ := newBatchService()
		batches.On("GetByIDForUpdate", mock.Anything, int32(4)).Return(&domain.TrainingBatch{ID: 4, TrainingProgram: "SAT", MaxParticipants: 24}, nil)
		_, err := svc.Assign(ctx, &domain.Participant{TrainingProgram: "BST"}, int32p(4))
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("full batch", func(t *testing.T) {
		svc, batches, _ := newBatchService()
		batches.On("GetByIDForUpdate", mock.Anything, int32(4)).
			Return(&domain.TrainingBatch{ID: 4, TrainingProgram: "BST", MaxParticipants: 2, ParticipantCount: 2, Status: domain.BatchStatusReady}, nil)
		_, err := svc.Assign(ctx, &domain.Participant{TrainingProgram: "BST"}, int32p(4))
		assert.EqualError(t, err, "Batch is full")
	})
}

func TestBatchService_SendToCenter(t *testing.T) {
	ctx := context.Background()

	t.Run("moves waiting participants", func(t *testing.T) {
		svc, batches, participants := newBatchService()
		b := &domain.TrainingBatch{ID: 4, MinParticipants: 2, MaxParticipants: 4, ParticipantCount: 3, Status: domain.BatchStatusReady}
		batches.On("GetByIDForUpdate", mock.Anything, int32(4)).Return(b, nil)
		participants.On("TransitionByBatch", mock.Anything, int32(4), domain.ParticipantStatusWaitingQuota, domain.ParticipantStatusSentToCenter).
			Return(int64(3), nil)
		batches.On("Update", mock.Anything, b).Return(nil)

		got, moved, err := svc.SendToCenter(ctx, adminActor, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(3), moved)
		assert.Equal(t, domain.BatchStatusSentToCenter, got.Status)
		assert.Equal(t, int32(1), *got.SentToCenterBy)
	})

	t.Run("forming batch is refused", func(t *testing.T) {
		svc, batches, participants := newBatchService()
		batches.On("GetByIDForUpdate", mock.Anything, int32(4)).
			Return(&domain.TrainingBatch{ID: 4, MinParticipants: 2, ParticipantCount: 1, Status: domain.BatchStatusForming}, nil)

		_, _, err := svc.SendToCenter(ctx, adminActor, 4)
		var serr *domain.StateError
		require.ErrorAs(t, err, &serr)
		participants.AssertNotCalled(t, "TransitionByBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBatchService_Delete(t *testing.T) {
	svc, batches, _ := newBatchService()
	batches.On("GetByIDForUpdate", mock.Anything, int32(4)).
		Return(&domain.TrainingBatch{ID: 4, Status: domain.BatchStatusForming, ParticipantCount: 1}, nil).Once()
	assert.EqualError(t, svc.Delete(context.Background(), 4), "Cannot delete batch that has participants")

	batches.On("GetByIDForUpdate", mock.Anything, int32(4)).
		Return(&domain.TrainingBatch{ID: 4, Status: domain.BatchStatusForming}, nil).Once()
	batches.On("Delete", mock.Anything, int32(4)).Return(nil)
	assert.NoError(t, svc.Delete(context.Background(), 4))
}
