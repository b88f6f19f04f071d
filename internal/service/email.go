package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/utils"
)

type emailService struct {
	client *sendgrid.Client
	from   *mail.Email
	admin  string
}

// NewEmailService sends through SendGrid. Without an API key, messages are
// only logged.
func NewEmailService(cfg config.EmailConfig) EmailService {
	if cfg.SendGridAPIKey == "" {
		return logOnlyEmail{}
	}
	return &emailService{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.From),
		admin:  cfg.AdminAddress,
	}
}

func (s *emailService) send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = subject
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", body))

	logger.ExternalServiceCall("sendgrid", "send", "subject", subject, "recipients", len(to))
	resp, err := s.client.SendWithContext(ctx, m)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) SendPaymentDecision(ctx context.Context, to []string, subject string, status domain.PaymentStatus, notes string) error {
	return s.send(ctx, to, "[SMY-NAV] "+subject, paymentDecisionBody(subject, status, notes))
}

func (s *emailService) SendInvoiceReminder(ctx context.Context, to string, inv *domain.TrainingInvoice) error {
	subject, body := invoiceReminder(inv)
	return s.send(ctx, []string{to}, subject, body)
}

func (s *emailService) SendAdminNotification(ctx context.Context, subject, message string) error {
	if s.admin == "" {
		return nil
	}
	return s.send(ctx, []string{s.admin}, "[SMY-NAV] "+subject, message)
}

func paymentDecisionBody(subject string, status domain.PaymentStatus, notes string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nStatus pembayaran: %s\n", subject, status)
	if notes != "" {
		fmt.Fprintf(&b, "Catatan: %s\n", notes)
	}
	b.WriteString("\nSalam,\nTim SMY-NAV")
	return b.String()
}

func invoiceReminder(inv *domain.TrainingInvoice) (string, string) {
	subject := fmt.Sprintf("[SMY-NAV] Pengingat pembayaran %s", inv.InvoiceNumber)
	body := fmt.Sprintf("Invoice %s untuk program %s (%d peserta) sebesar %s jatuh tempo pada %s.\n"+
		"Mohon unggah bukti pembayaran sebelum tanggal tersebut.\n\nSalam,\nTim SMY-NAV",
		inv.InvoiceNumber, inv.TrainingProgram, inv.ParticipantCount, utils.FormatIDR(inv.TotalAmount),
		inv.DueDate.Format("02 Jan 2006"))
	return subject, body
}

type logOnlyEmail struct{}

func (logOnlyEmail) SendPaymentDecision(ctx context.Context, to []string, subject string, status domain.PaymentStatus, notes string) error {
	logger.InfoContext(ctx, "Email disabled, payment decision not sent", "to", to, "subject", subject, "status", status)
	return nil
}

func (logOnlyEmail) SendInvoiceReminder(ctx context.Context, to string, inv *domain.TrainingInvoice) error {
	logger.InfoContext(ctx, "Email disabled, invoice reminder not sent", "to", to, "invoice", inv.InvoiceNumber)
	return nil
}

func (logOnlyEmail) SendAdminNotification(ctx context.Context, subject, message string) error {
	logger.InfoContext(ctx, "Email disabled, admin notification not sent", "subject", subject)
	return nil
}
