package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/service"
)

func newPaymentService() (service.PaymentService, *MockParticipantRepo, *MockHistoryRepo, *MockUserRepo, *MockEmailService, *memStore) {
	participants := new(MockParticipantRepo)
	history := new(MockHistoryRepo)
	users := new(MockUserRepo)
	email := new(MockEmailService)
	store := newMemStore()
	svc := service.NewPaymentService(&fakeTx{}, participants, history, users, store, email)
	return svc, participants, history, users, email, store
}

// The two calls below follow one pay-later participant through a first proof
// upload and an admin rejection.
func TestPaymentService_PayLaterUploadThenReject(t *testing.T) {
	svc, participants, history, users, email, _ := newPaymentService()
	ctx := context.Background()

	p := &domain.Participant{ID: 5, AgencyID: int32p(3), FullName: "Budi Santoso", RegistrationNumber: "SMY-ABC-001-BST",
		PaymentOption: domain.PaymentOptionPayLater, Status: domain.ParticipantStatusSubmitted}
	var entries []*domain.PaymentHistoryEntry

	participants.On("GetByIDForUpdate", mock.Anything, int32(5)).Return(p, nil)
	participants.On("Update", mock.Anything, p).Return(nil)
	history.On("Append", mock.Anything, mock.AnythingOfType("*domain.PaymentHistoryEntry")).
		Run(func(args mock.Arguments) { entries = append(entries, args.Get(1).(*domain.PaymentHistoryEntry)) }).
		Return(nil)
	email.On("SendAdminNotification", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := svc.UploadProof(ctx, agentActor, 5, pdf("payment_proof"), "transfer BCA")
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaymentVersion)
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(7), *entries[0].ActorID)

	_, err = svc.Reject(ctx, adminActor, 5, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, entries, 1)

	users.On("ListEmailsByAgency", mock.Anything, int32(3)).Return([]string{"agent@abadi.co.id"}, nil)
	email.On("SendPaymentDecision", mock.Anything, []string{"agent@abadi.co.id"}, mock.Anything, domain.PaymentStatusRejected, "Bukti tidak jelas").Return(nil)

	got, err = svc.Reject(ctx, adminActor, 5, "Bukti tidak jelas")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, got.PaymentStatus)
	assert.Equal(t, int32(1), *got.PaymentRejectedBy)
	assert.NotNil(t, got.PaymentRejectedAt)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[1].Version)
	assert.Equal(t, domain.PaymentStatusRejected, entries[1].Status)
	email.AssertExpectations(t)
}

func TestPaymentService_ResubmitAfterRejection(t *testing.T) {
	svc, participants, history, _, email, store := newPaymentService()
	p := &domain.Participant{ID: 5, AgencyID: int32p(3), PaymentOption: domain.PaymentOptionPayLater,
		PaymentStatus: domain.PaymentStatusRejected, PaymentVersion: 1, PaymentProof: &domain.StoredFile{PublicID: "payment-proofs/a.pdf"}}
	participants.On("GetByIDForUpdate", mock.Anything, int32(5)).Return(p, nil)
	participants.On("Update", mock.Anything, p).Return(nil)
	history.On("Append", mock.Anything, mock.Anything).Return(nil)
	email.On("SendAdminNotification", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := svc.UploadProof(context.Background(), agentActor, 5, pdf("payment_proof"), "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.PaymentVersion)
	assert.Equal(t, domain.PaymentStatusResubmitted, got.PaymentStatus)
	assert.Equal(t, 1, store.count())
}

func TestPaymentService_UploadRefusedWhenApproved(t *testing.T) {
	svc, participants, _, _, _, store := newPaymentService()
	participants.On("GetByIDForUpdate", mock.Anything, int32(5)).
		Return(&domain.Participant{ID: 5, AgencyID: int32p(3), PaymentStatus: domain.PaymentStatusApproved}, nil)

	_, err := svc.UploadProof(context.Background(), agentActor, 5, pdf("payment_proof"), "")
	var serr *domain.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 0, store.count(), "stored proof is discarded")
}

func TestPaymentService_UploadOtherAgency(t *testing.T) {
	svc, participants, _, _, _, _ := newPaymentService()
	participants.On("GetByIDForUpdate", mock.Anything, int32(5)).
		Return(&domain.Participant{ID: 5, AgencyID: int32p(8)}, nil)

	_, err := svc.UploadProof(context.Background(), agentActor, 5, pdf("payment_proof"), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a pending payment", func(t *testing.T) {
		svc, participants, _, _, _, _ := newPaymentService()
		participants.On("GetByIDForUpdate", mock.Anything, int32(5)).
			Return(&domain.Participant{ID: 5, PaymentStatus: domain.PaymentStatusNone}, nil)
		_, err := svc.Approve(ctx, adminActor, 5, "")
		var serr *domain.StateError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("agents cannot decide", func(t *testing.T) {
		svc, _, _, _, _, _ := newPaymentService()
		_, err := svc.Approve(ctx, agentActor, 5, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("approves a resubmission", func(t *testing.T) {
		svc, participants, history, users, email, _ := newPaymentService()
		p := &domain.Participant{ID: 5, Email: "sari@example.com", PaymentStatus: domain.PaymentStatusResubmitted, PaymentVersion: 2}
		participants.On("GetByIDForUpdate", mock.Anything, int32(5)).Return(p, nil)
		participants.On("Update", mock.Anything, p).Return(nil)
		history.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.PaymentHistoryEntry) bool {
			return e.Version == 2 && e.Status == domain.PaymentStatusApproved
		})).Return(nil)
		email.On("SendPaymentDecision", mock.Anything, []string{"sari@example.com"}, mock.Anything, domain.PaymentStatusApproved, "").Return(nil)

		got, err := svc.Approve(ctx, adminActor, 5, "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusApproved, got.PaymentStatus)
		assert.NotNil(t, got.PaymentApprovedAt)
		history.AssertExpectations(t)
		users.AssertNotCalled(t, "ListEmailsByAgency", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_History(t *testing.T) {
	svc, participants, history, _, _, _ := newPaymentService()
	participants.On("GetByID", mock.Anything, int32(5)).Return(&domain.Participant{ID: 5, AgencyID: int32p(3)}, nil)
	history.On("List", mock.Anything, domain.PaymentSubjectParticipant, int32(5)).
		Return([]domain.PaymentHistoryEntry{{Version: 1}, {Version: 1}}, nil)

	entries, err := svc.History(context.Background(), agentActor, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.History(context.Background(), domain.Actor{UserID: 8, Role: domain.RoleAgent, AgencyID: int32p(4)}, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// captureLogs sends the global logger to a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.Configure(&buf, "info", "json")
	t.Cleanup(func() { logger.Configure(os.Stdout, "info", "text") })
	return &buf
}

func TestPaymentService_UploadSurvivesNotificationFailure(t *testing.T) {
	svc, participants, history, _, email, _ := newPaymentService()
	logs := captureLogs(t)

	p := &domain.Participant{ID: 5, AgencyID: int32p(3), RegistrationNumber: "SMY-ABC-001-BST",
		PaymentOption: domain.PaymentOptionPayLater, Status: domain.ParticipantStatusSubmitted}
	participants.On("GetByIDForUpdate", mock.Anything, int32(5)).Return(p, nil)
	participants.On("Update", mock.Anything, p).Return(nil)
	history.On("Append", mock.Anything, mock.Anything).Return(nil)
	email.On("SendAdminNotification", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sendgrid: 401"))

	got, err := svc.UploadProof(context.Background(), agentActor, 5, pdf("payment_proof"), "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Contains(t, logs.String(), "Admin notification failed")
	assert.Contains(t, logs.String(), "sendgrid: 401")
}
