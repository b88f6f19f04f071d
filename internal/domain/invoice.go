package domain

import (
	"fmt"
	"time"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type TrainingInvoice struct {
	ID               int32         `json:"id"`
	InvoiceNumber    string        `json:"invoiceNumber"`
	AgencyID         int32         `json:"agencyId"`
	TrainingProgram  string        `json:"trainingProgram"`
	ParticipantCount int           `json:"participantCount"`
	UnitPrice        int64         `json:"unitPrice"`
	TotalAmount      int64         `json:"totalAmount"`
	Status           InvoiceStatus `json:"status"`
	PaymentOption    PaymentOption `json:"paymentOption"`
	PaymentProof     *StoredFile   `json:"paymentProof"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	PaymentVersion   int           `json:"paymentVersion"`
	DueDate          time.Time     `json:"dueDate"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
	ApprovedBy       *int32        `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time    `json:"approvedAt,omitempty"`
	RejectedBy       *int32        `json:"rejectedBy,omitempty"`
	RejectedAt       *time.Time    `json:"rejectedAt,omitempty"`
	AdminNotes       string        `json:"adminNotes,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	Agency       *Agency       `json:"agency,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// InvoiceNumber formats INV-SMY-{agency}-{program}-{yyyy}{mm}{seq}.
func InvoiceNumber(agencyCode, program string, at time.Time, seq int) string {
	return fmt.Sprintf("INV-SMY-%s-%s-%04d%02d%03d", agencyCode, program, at.Year(), int(at.Month()), seq)
}

// InvoiceDueDate is three days out for immediate payment and thirty otherwise.
func InvoiceDueDate(option PaymentOption, from time.Time) time.Time {
	if option == PaymentOptionPayNow {
		return from.AddDate(0, 0, 3)
	}
	return from.AddDate(0, 0, 30)
}

type InvoiceFilter struct {
	AgencyID        *int32
	Status          string
	PaymentStatus   string
	TrainingProgram string
	Search          string
	Page            int
	Limit           int
}

type InvoiceSummary struct {
	TotalInvoices int   `json:"totalInvoices"`
	TotalAmount   int64 `json:"totalAmount"`
	PendingAmount int64 `json:"pendingAmount"`
	PaidAmount    int64 `json:"paidAmount"`
	PendingCount  int   `json:"pendingCount"`
	PaidCount     int   `json:"paidCount"`
	OverdueCount  int   `json:"overdueCount"`
}
