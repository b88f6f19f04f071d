package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/cache"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

// mapCache is an in-memory cache.Cache.
type mapCache struct{ m map[string][]byte }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.m[key]; ok {
		return v, nil
	}
	return nil, cache.ErrMiss
}

func (c *mapCache) Set(_ context.Context, key string, v []byte, _ time.Duration) error {
	c.m[key] = v
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}

func TestDashboardService_StatsAreCachedPerScope(t *testing.T) {
	repo := new(MockDashboardRepo)
	c := &mapCache{m: map[string][]byte{}}
	svc := service.NewDashboardService(repo, c, time.Minute)
	ctx := context.Background()

	agency := int32p(3)
	repo.On("CountParticipants", mock.Anything, agency, false, (*time.Time)(nil), (*time.Time)(nil)).Return(10, nil)
	repo.On("CountParticipants", mock.Anything, agency, false, mock.AnythingOfType("*time.Time"), mock.AnythingOfType("*time.Time")).Return(4, nil).Once()
	repo.On("CountParticipants", mock.Anything, agency, false, mock.AnythingOfType("*time.Time"), mock.AnythingOfType("*time.Time")).Return(2, nil).Once()
	repo.On("CountActiveSchedules", mock.Anything, mock.Anything).Return(1, nil)
	repo.On("CountByStatus", mock.Anything, agency).Return(map[domain.ParticipantStatus]int{
		domain.ParticipantStatusCompleted: 3, domain.ParticipantStatusSubmitted: 2,
	}, nil)

	st, err := svc.Stats(ctx, agentActor)
	require.NoError(t, err)
	assert.Equal(t, 10, st.TotalParticipants)
	assert.Equal(t, 4, st.ThisMonth)
	assert.Equal(t, 2, st.LastMonth)
	assert.Equal(t, 100.0, st.TrendPercentage)
	assert.Equal(t, 3, st.Completed)
	assert.Equal(t, 2, st.PendingReview)
	assert.Nil(t, st.PaymentStats)

	again, err := svc.Stats(ctx, agentActor)
	require.NoError(t, err)
	assert.Equal(t, st, again)
	repo.AssertNumberOfCalls(t, "CountByStatus", 1)
	assert.Contains(t, c.m, "dashboard:stats:agent:3")

	_, err = svc.Stats(ctx, domain.Actor{UserID: 50, Role: domain.RoleParticipant})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDashboardService_Progress(t *testing.T) {
	repo := new(MockDashboardRepo)
	svc := service.NewDashboardService(repo, nil, 0)

	repo.On("CountByStatus", mock.Anything, (*int32)(nil)).Return(map[domain.ParticipantStatus]int{
		domain.ParticipantStatusDraft:        5,
		domain.ParticipantStatusSubmitted:    2,
		domain.ParticipantStatusVerified:     1,
		domain.ParticipantStatusWaitingQuota: 1,
		domain.ParticipantStatusCompleted:    4,
	}, nil)
	repo.On("AverageProgress", mock.Anything, (*int32)(nil), true).Return(57.25, nil)

	pr, err := svc.Progress(context.Background(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, 8, pr.Total)
	require.Len(t, pr.Buckets, 4)
	assert.Equal(t, "Documentation", pr.Buckets[0].Label)
	assert.Equal(t, 2, pr.Buckets[0].Count)
	assert.Equal(t, 25.0, pr.Buckets[0].Percentage)
	assert.Equal(t, 4, pr.Buckets[3].Count)
	assert.Equal(t, 57.3, pr.AverageProgress)
}

func TestDashboardService_ActivitiesMergeSchedulesForAdmins(t *testing.T) {
	repo := new(MockDashboardRepo)
	svc := service.NewDashboardService(repo, nil, 0)
	now := time.Now()

	repo.On("RecentParticipants", mock.Anything, (*int32)(nil), true, 2).Return([]domain.Participant{
		{ID: 1, FullName: "Budi", TrainingProgram: "BST", Status: domain.ParticipantStatusVerified, UpdatedAt: now.Add(-time.Hour),
			Agency: &domain.Agency{Name: "PT Abadi"}},
	}, nil)
	repo.On("UpcomingSchedules", mock.Anything, mock.Anything, 5).Return([]domain.TrainingSchedule{
		{ID: 9, Name: "BST November", TrainingProgram: "BST", CreatedAt: now},
		{ID: 8, Name: "SAT Oktober", TrainingProgram: "SAT", CreatedAt: now.Add(-48 * time.Hour)},
	}, nil)

	acts, err := svc.Activities(context.Background(), adminActor, 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "schedule", acts[0].Type)
	assert.Equal(t, "Participant document verified", acts[1].Title)
	assert.Equal(t, "Budi - BST (PT Abadi)", acts[1].Detail)
}
