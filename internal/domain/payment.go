package domain

import "time"

type PaymentSubject string

const (
	PaymentSubjectParticipant PaymentSubject = "participant"
	PaymentSubjectInvoice     PaymentSubject = "invoice"
)

// PaymentHistoryEntry is one immutable row of the payment audit trail.
type PaymentHistoryEntry struct {
	ID          int32          `json:"id"`
	SubjectType PaymentSubject `json:"subjectType"`
	SubjectID   int32          `json:"subjectId"`
	Version     int            `json:"version"`
	Status      PaymentStatus  `json:"status"`
	Proof       *StoredFile    `json:"proof"`
	Notes       string         `json:"notes"`
	ActorID     *int32         `json:"actorId"`
	CreatedAt   time.Time      `json:"timestamp"`
}

// NextPaymentSubmission computes the version and status of a new proof upload.
// The first proof of a pay-later record keeps version 1.
func NextPaymentSubmission(option PaymentOption, current PaymentStatus, version int, hasProof bool) (int, PaymentStatus) {
	next := version + 1
	if option == PaymentOptionPayLater && !hasProof {
		next = 1
	}
	if next < 1 {
		next = 1
	}
	status := PaymentStatusPending
	if current == PaymentStatusRejected {
		status = PaymentStatusResubmitted
	}
	return next, status
}
