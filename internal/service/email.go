package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"gamerental-backend/internal/logger"
)

type emailService struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewEmailService(apiKey, fromName, fromEmail string) EmailService {
	return &emailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *emailService) SendEmployeeWelcome(ctx context.Context, email, name, branchID string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(name, email)
	subject := "Welcome to the rental counter"
	plain := fmt.Sprintf(
		"Hi %s,\n\nYour staff account for branch %s is ready. Sign in with this email address to start scanning rentals.\n",
		name, branchID)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your staff account for branch <strong>%s</strong> is ready. Sign in with this email address to start scanning rentals.</p>",
		name, branchID)

	message := mail.NewSingleEmail(from, subject, to, plain, html)

	logger.ExternalServiceCall("sendgrid", "Send", "to", email)
	resp, err := s.client.SendWithContext(ctx, message)
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", email)
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("welcome email rejected: status %d", resp.StatusCode)
	}
	return nil
}
