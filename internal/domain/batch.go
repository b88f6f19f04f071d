package domain

import (
	"fmt"
	"time"
)

type BatchStatus string

const (
	BatchStatusForming      BatchStatus = "forming"
	BatchStatusReady        BatchStatus = "ready"
	BatchStatusSentToCenter BatchStatus = "sent_to_center"
)

const (
	DefaultBatchMin = 15
	DefaultBatchMax = 24
)

type TrainingBatch struct {
	ID               int32       `json:"id"`
	BatchNumber      string      `json:"batchNumber"`
	TrainingProgram  string      `json:"trainingProgram"`
	Year             int         `json:"year"`
	Sequence         int         `json:"sequence"`
	MinParticipants  int         `json:"minParticipants"`
	MaxParticipants  int         `json:"maxParticipants"`
	Status           BatchStatus `json:"status"`
	ParticipantCount int         `json:"participantCount"`
	SentToCenterAt   *time.Time  `json:"sentToCenterAt,omitempty"`
	SentToCenterBy   *int32      `json:"sentToCenterBy,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`

	Participants []Participant `json:"participants,omitempty"`
}

func BatchNumber(program string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", program, year, seq)
}

type BatchStats struct {
	ParticipantCount int     `json:"participantCount"`
	FillPercentage   float64 `json:"fillPercentage"`
	IsReady          bool    `json:"isReady"`
	IsFull           bool    `json:"isFull"`
}

func (b *TrainingBatch) Stats() BatchStats {
	st := BatchStats{ParticipantCount: b.ParticipantCount}
	if b.MaxParticipants > 0 {
		st.FillPercentage = float64(b.ParticipantCount) * 100 / float64(b.MaxParticipants)
	}
	st.IsReady = b.ParticipantCount >= b.MinParticipants
	st.IsFull = b.ParticipantCount >= b.MaxParticipants
	return st
}

type BatchFilter struct {
	TrainingProgram string
	Status          string
	Year            int
}

type BatchOverview struct {
	ByStatus  map[string]int `json:"byStatus"`
	ByProgram map[string]int `json:"byProgram"`
	Total     int            `json:"total"`
}
