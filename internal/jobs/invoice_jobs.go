package jobs

import (
	"context"

	"smy-nav-backend/internal/logger"
)

// MarkOverdueInvoices flags pending invoices whose due date has passed.
func (jr *JobRunner) MarkOverdueInvoices() {
	jr.runWithRecovery("MarkOverdueInvoices", func(ctx context.Context) {
		n, err := jr.services.Invoices.MarkOverdue(ctx, jr.now())
		if err != nil {
			logger.Error("Failed to mark overdue invoices", "error", err)
			return
		}
		logger.Info("Marked overdue invoices", "count", n)
	})
}

// SendInvoiceReminders emails agencies about invoices that fall due soon.
func (jr *JobRunner) SendInvoiceReminders() {
	jr.runWithRecovery("SendInvoiceReminders", func(ctx context.Context) {
		sent, err := jr.services.Invoices.SendReminders(ctx, jr.now())
		if err != nil {
			logger.Error("Failed to send invoice reminders", "error", err)
			return
		}
		logger.Info("Sent invoice reminders", "count", sent)
	})
}
