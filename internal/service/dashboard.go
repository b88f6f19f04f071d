package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"smy-nav-backend/internal/cache"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/utils"
)

const (
	defaultStatsTTL      = 60 * time.Second
	defaultActivityLimit = 10
	maxActivityLimit     = 50
	upcomingSchedules    = 5
)

type dashboardService struct {
	repo  repository.DashboardRepository
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository, c cache.Cache, ttl time.Duration) DashboardService {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &dashboardService{repo: repo, cache: c, ttl: ttl, now: time.Now}
}

// scope returns the agency filter and whether drafts are hidden. Admins see
// every agency but not drafts.
func scope(actor domain.Actor) (*int32, bool, error) {
	switch {
	case actor.Role.IsAdmin():
		return nil, true, nil
	case actor.Role == domain.RoleAgent && actor.AgencyID != nil:
		return actor.AgencyID, false, nil
	}
	return nil, false, domain.ErrForbidden
}

func statsKey(kind string, actor domain.Actor) string {
	agency := "all"
	if actor.AgencyID != nil && !actor.Role.IsAdmin() {
		agency = fmt.Sprint(*actor.AgencyID)
	}
	return fmt.Sprintf("dashboard:%s:%s:%s", kind, actor.Role, agency)
}

func (s *dashboardService) Stats(ctx context.Context, actor domain.Actor) (*domain.DashboardStats, error) {
	agencyID, excludeDraft, err := scope(actor)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, statsKey("stats", actor), s.ttl, func(ctx context.Context) (*domain.DashboardStats, error) {
		now := s.now()
		thisStart, nextStart := utils.MonthBounds(now)
		lastStart, _ := utils.MonthBounds(thisStart.AddDate(0, 0, -1))

		var err error
		st := &domain.DashboardStats{}
		if st.TotalParticipants, err = s.repo.CountParticipants(ctx, agencyID, excludeDraft, nil, nil); err != nil {
			return nil, err
		}
		if st.ThisMonth, err = s.repo.CountParticipants(ctx, agencyID, excludeDraft, &thisStart, &nextStart); err != nil {
			return nil, err
		}
		if st.LastMonth, err = s.repo.CountParticipants(ctx, agencyID, excludeDraft, &lastStart, &thisStart); err != nil {
			return nil, err
		}
		st.TrendPercentage = math.Round(domain.Trend(st.ThisMonth, st.LastMonth)*10) / 10
		if st.ActiveTrainings, err = s.repo.CountActiveSchedules(ctx, now); err != nil {
			return nil, err
		}
		counts, err := s.repo.CountByStatus(ctx, agencyID)
		if err != nil {
			return nil, err
		}
		st.Completed = counts[domain.ParticipantStatusCompleted]
		st.PendingReview = counts[domain.ParticipantStatusSubmitted]
		if actor.Role.IsAdmin() {
			if st.PaymentStats, err = s.repo.PaymentStats(ctx); err != nil {
				return nil, err
			}
		}
		return st, nil
	})
}

func activityTitle(status domain.ParticipantStatus) string {
	switch status {
	case domain.ParticipantStatusSubmitted:
		return "Participant submitted registration"
	case domain.ParticipantStatusVerified:
		return "Participant document verified"
	case domain.ParticipantStatusRejected:
		return "Participant rejected"
	case domain.ParticipantStatusSentToCenter:
		return "Participant sent to training center"
	case domain.ParticipantStatusCompleted:
		return "Participant training completed"
	}
	return "Participant registered"
}

func (s *dashboardService) Activities(ctx context.Context, actor domain.Actor, limit int) ([]domain.Activity, error) {
	agencyID, excludeDraft, err := scope(actor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	recent, err := s.repo.RecentParticipants(ctx, agencyID, excludeDraft, limit)
	if err != nil {
		return nil, err
	}
	activities := make([]domain.Activity, 0, len(recent))
	for _, p := range recent {
		detail := p.FullName + " - " + p.TrainingProgram
		if p.Agency != nil {
			detail += " (" + p.Agency.Name + ")"
		}
		activities = append(activities, domain.Activity{
			Type:      "participant",
			Title:     activityTitle(p.Status),
			Detail:    detail,
			Status:    string(p.Status),
			RefID:     p.ID,
			Timestamp: p.UpdatedAt,
		})
	}

	if actor.Role.IsAdmin() {
		schedules, err := s.repo.UpcomingSchedules(ctx, s.now(), upcomingSchedules)
		if err != nil {
			return nil, err
		}
		for _, sch := range schedules {
			activities = append(activities, domain.Activity{
				Type:      "schedule",
				Title:     "Upcoming training schedule",
				Detail:    sch.Name + " - " + sch.TrainingProgram,
				Status:    string(sch.Status),
				RefID:     sch.ID,
				Timestamp: sch.CreatedAt,
			})
		}
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

var progressBuckets = []struct {
	label    string
	statuses []domain.ParticipantStatus
}{
	{"Documentation", []domain.ParticipantStatus{domain.ParticipantStatusDraft, domain.ParticipantStatusSubmitted}},
	{"Document Verified", []domain.ParticipantStatus{domain.ParticipantStatusVerified}},
	{"In Progress", []domain.ParticipantStatus{
		domain.ParticipantStatusWaitingQuota, domain.ParticipantStatusSentToCenter, domain.ParticipantStatusWaitingDispatch,
	}},
	{"Completed", []domain.ParticipantStatus{domain.ParticipantStatusCompleted}},
}

func (s *dashboardService) Progress(ctx context.Context, actor domain.Actor) (*domain.DashboardProgress, error) {
	agencyID, excludeDraft, err := scope(actor)
	if err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, statsKey("progress", actor), s.ttl, func(ctx context.Context) (*domain.DashboardProgress, error) {
		counts, err := s.repo.CountByStatus(ctx, agencyID)
		if err != nil {
			return nil, err
		}
		if excludeDraft {
			delete(counts, domain.ParticipantStatusDraft)
		}
		out := &domain.DashboardProgress{}
		for _, n := range counts {
			out.Total += n
		}
		for _, b := range progressBuckets {
			bucket := domain.ProgressBucket{Label: b.label}
			for _, st := range b.statuses {
				bucket.Count += counts[st]
			}
			if out.Total > 0 {
				bucket.Percentage = math.Round(float64(bucket.Count)*1000/float64(out.Total)) / 10
			}
			out.Buckets = append(out.Buckets, bucket)
		}
		avg, err := s.repo.AverageProgress(ctx, agencyID, excludeDraft)
		if err != nil {
			return nil, err
		}
		out.AverageProgress = math.Round(avg*10) / 10
		return out, nil
	})
}
