package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventhub/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendEventModerated tells the owner whether their event was published or rejected, using the "event_moderated" template.
func (s *emailService) SendEventModerated(ctx context.Context, data *domain.EventModeratedEmailData) error {
	if data == nil {
		return fmt.Errorf("event moderated data is nil")
	}
	return s.send(ctx, "event_moderated", data.Email, data)
}

// SendRequestResolved tells a requester the outcome of arbitration, using the "request_resolved" template.
func (s *emailService) SendRequestResolved(ctx context.Context, data *domain.RequestResolvedEmailData) error {
	if data == nil {
		return fmt.Errorf("request resolved data is nil")
	}
	return s.send(ctx, "request_resolved", data.Email, data)
}

func (s *emailService) send(ctx context.Context, template, to string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", template, "to", to)
	return nil
}
