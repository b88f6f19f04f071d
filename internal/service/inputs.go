package service

import (
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/storage"
)

type RegisterUserInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     domain.Role
	AgencyID *int32
}

type UpdateProfileInput struct {
	FullName string
	Email    string
}

type RegisterParticipantInput struct {
	FullName        string
	Email           string
	Phone           string
	BirthDate       time.Time
	Password        string
	TrainingProgram string
}

type AgencyInput struct {
	Name          string
	Code          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	Status        domain.AgencyStatus
}

// ParticipantData is the personal data shared by every way of registering.
type ParticipantData struct {
	FullName        string
	NIK             string
	Email           string
	Phone           string
	BirthPlace      string
	BirthDate       *time.Time
	Gender          string
	Address         string
	SeafarerCode    string
	MotherName      string
	TrainingProgram string
	PaymentOption   domain.PaymentOption
}

type CreateParticipantInput struct {
	ParticipantData
	AgencyID     *int32
	Documents    []*storage.File
	PaymentProof *storage.File
}

type AgencySubmissionInput struct {
	ParticipantData
	Programs                []string
	BSTCertificateConfirmed bool
	AgencyID                *int32
	Documents               []*storage.File
	PaymentProof            *storage.File
}

// UpdateParticipantInput carries only the fields being changed.
type UpdateParticipantInput struct {
	FullName        *string
	NIK             *string
	Email           *string
	Phone           *string
	BirthPlace      *string
	BirthDate       *time.Time
	Gender          *string
	Address         *string
	SeafarerCode    *string
	MotherName      *string
	TrainingProgram *string
	Documents       []*storage.File
}

type TransitionOptions struct {
	Reason  string
	BatchID *int32
}

type ScheduleInput struct {
	TrainingProgram string
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	Location        string
	Instructor      string
	MaxParticipants int
	Description     string
	Status          domain.ScheduleStatus
}

type BatchInput struct {
	TrainingProgram string
	Year            int
	MinParticipants int
	MaxParticipants int
}
