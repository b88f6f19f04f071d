package domain

import "time"

type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusOngoing   ScheduleStatus = "ongoing"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

const DefaultScheduleCapacity = 24

type TrainingSchedule struct {
	ID               int32          `json:"id"`
	TrainingProgram  string         `json:"trainingProgram"`
	Name             string         `json:"name"`
	StartDate        time.Time      `json:"startDate"`
	EndDate          time.Time      `json:"endDate"`
	Location         string         `json:"location"`
	Instructor       string         `json:"instructor"`
	MaxParticipants  int            `json:"maxParticipants"`
	Description      string         `json:"description"`
	Status           ScheduleStatus `json:"status"`
	ParticipantCount int            `json:"participantCount"`
	CreatedBy        int32          `json:"createdBy"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// AvailableSlots is never negative.
func (s *TrainingSchedule) AvailableSlots() int {
	if n := s.MaxParticipants - s.ParticipantCount; n > 0 {
		return n
	}
	return 0
}

type ScheduleParticipant struct {
	ScheduleID    int32        `json:"scheduleId"`
	ParticipantID int32        `json:"participantId"`
	AssignedAt    time.Time    `json:"assignedAt"`
	AssignedBy    int32        `json:"assignedBy"`
	Participant   *Participant `json:"participant,omitempty"`
}

type ScheduleFilter struct {
	TrainingProgram string
	Status          string
	Page            int
	Limit           int
}
