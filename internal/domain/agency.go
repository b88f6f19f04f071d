package domain

import "time"

type AgencyStatus string

const (
	AgencyStatusActive   AgencyStatus = "active"
	AgencyStatusInactive AgencyStatus = "inactive"
)

// SelfAgencyCode is used in registration numbers of walk-in participants.
const SelfAgencyCode = "SELF"

type Agency struct {
	ID            int32        `json:"id"`
	Name          string       `json:"name"`
	Code          string       `json:"code"`
	ContactPerson string       `json:"contactPerson"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	Address       string       `json:"address"`
	Status        AgencyStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
