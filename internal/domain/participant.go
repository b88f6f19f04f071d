package domain

import "time"

type ParticipantStatus string

const (
	ParticipantStatusDraft           ParticipantStatus = "draft"
	ParticipantStatusSubmitted       ParticipantStatus = "submitted"
	ParticipantStatusVerified        ParticipantStatus = "verified"
	ParticipantStatusWaitingQuota    ParticipantStatus = "waiting_quota"
	ParticipantStatusSentToCenter    ParticipantStatus = "sent_to_center"
	ParticipantStatusWaitingDispatch ParticipantStatus = "waiting_dispatch"
	ParticipantStatusCompleted       ParticipantStatus = "completed"
	ParticipantStatusRejected        ParticipantStatus = "rejected"
)

// AllParticipantStatuses is ordered along the forward path, rejected last.
var AllParticipantStatuses = []ParticipantStatus{
	ParticipantStatusDraft,
	ParticipantStatusSubmitted,
	ParticipantStatusVerified,
	ParticipantStatusWaitingQuota,
	ParticipantStatusSentToCenter,
	ParticipantStatusWaitingDispatch,
	ParticipantStatusCompleted,
	ParticipantStatusRejected,
}

func (s ParticipantStatus) Valid() bool {
	_, ok := progressTable[s]
	return ok
}

type progress struct {
	percentage int
	step       int
}

var progressTable = map[ParticipantStatus]progress{
	ParticipantStatusDraft:           {5, 1},
	ParticipantStatusSubmitted:       {20, 2},
	ParticipantStatusVerified:        {40, 3},
	ParticipantStatusWaitingQuota:    {60, 4},
	ParticipantStatusSentToCenter:    {75, 5},
	ParticipantStatusWaitingDispatch: {90, 6},
	ParticipantStatusCompleted:       {100, 6},
	ParticipantStatusRejected:        {0, 1},
}

// ProgressFor returns the progress percentage shown for a status.
func ProgressFor(s ParticipantStatus) int {
	if p, ok := progressTable[s]; ok {
		return p.percentage
	}
	return 0
}

// StepFor returns the 1-based progress step shown for a status.
func StepFor(s ParticipantStatus) int {
	if p, ok := progressTable[s]; ok {
		return p.step
	}
	return 1
}

type PaymentOption string

const (
	PaymentOptionPayNow   PaymentOption = "pay_now"
	PaymentOptionPayLater PaymentOption = "pay_later"
)

func (o PaymentOption) Valid() bool {
	return o == PaymentOptionPayNow || o == PaymentOptionPayLater
}

type PaymentStatus string

const (
	PaymentStatusNone        PaymentStatus = ""
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusResubmitted PaymentStatus = "resubmitted"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusRejected    PaymentStatus = "rejected"
)

// AwaitingReview reports whether an admin decision is outstanding.
func (s PaymentStatus) AwaitingReview() bool {
	return s == PaymentStatusPending || s == PaymentStatusResubmitted
}

type Participant struct {
	ID                 int32                 `json:"id"`
	RegistrationNumber string                `json:"registrationNumber"`
	FullName           string                `json:"fullName"`
	NIK                *string               `json:"nik"`
	Email              string                `json:"email"`
	Phone              string                `json:"phone"`
	BirthPlace         string                `json:"birthPlace"`
	BirthDate          *time.Time            `json:"birthDate"`
	Gender             string                `json:"gender"`
	Address            string                `json:"address"`
	SeafarerCode       string                `json:"seafarerCode"`
	MotherName         string                `json:"motherName"`
	TrainingProgram    string                `json:"trainingProgram"`
	Status             ParticipantStatus     `json:"status"`
	CurrentStep        int                   `json:"currentProgressStep"`
	ProgressPercentage int                   `json:"progressPercentage"`
	Documents          map[string]StoredFile `json:"documents"`
	RejectionReason    string                `json:"rejectionReason,omitempty"`
	// BSTCertificateWaived is set when the person was registered for BST or
	// its refresher alongside this program, so no prior certificate exists.
	BSTCertificateWaived bool `json:"bstCertificateWaived"`

	PaymentOption     PaymentOption `json:"paymentOption"`
	PaymentProof      *StoredFile   `json:"paymentProof"`
	PaymentStatus     PaymentStatus `json:"paymentStatus"`
	PaymentVersion    int           `json:"paymentVersion"`
	PaymentNotes      string        `json:"paymentNotes,omitempty"`
	PaymentApprovedAt *time.Time    `json:"paymentApprovedAt,omitempty"`
	PaymentApprovedBy *int32        `json:"paymentApprovedBy,omitempty"`
	PaymentRejectedAt *time.Time    `json:"paymentRejectedAt,omitempty"`
	PaymentRejectedBy *int32        `json:"paymentRejectedBy,omitempty"`

	AgencyID   *int32     `json:"agencyId"`
	BatchID    *int32     `json:"batchId,omitempty"`
	InvoiceID  *int32     `json:"invoiceId,omitempty"`
	CreatedBy  int32      `json:"createdBy"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy *int32     `json:"verifiedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Agency  *Agency               `json:"agency,omitempty"`
	History []PaymentHistoryEntry `json:"paymentHistory,omitempty"`
}

// SyncProgress derives the progress fields from the current status.
func (p *Participant) SyncProgress() {
	p.ProgressPercentage = ProgressFor(p.Status)
	p.CurrentStep = StepFor(p.Status)
}

// BelongsTo reports whether the participant is owned by the agency.
func (p *Participant) BelongsTo(agencyID *int32) bool {
	return p.AgencyID != nil && agencyID != nil && *p.AgencyID == *agencyID
}

type ParticipantFilter struct {
	AgencyID        *int32
	Search          string
	TrainingProgram string
	Statuses        []ParticipantStatus
	ExcludeDraft    bool
	Page            int
	Limit           int
}
