package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventModeratedEmailData holds data for the moderation outcome email sent to an event owner.
type EventModeratedEmailData struct {
	Email      string
	OwnerName  string
	EventTitle string
	EventID    string
	State      EventState
}

// Published reports whether the event was published (as opposed to rejected).
func (d *EventModeratedEmailData) Published() bool {
	return d.State == EventStatePublished
}

// RequestResolvedEmailData holds data for the arbitration outcome email sent to a requester.
type RequestResolvedEmailData struct {
	Email         string
	RequesterName string
	EventTitle    string
	EventID       string
	RequestID     string
	Status        RequestStatus
}

// Confirmed reports whether the request was confirmed.
func (d *RequestResolvedEmailData) Confirmed() bool {
	return d.Status == RequestStatusConfirmed
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendEventModerated(ctx context.Context, data *EventModeratedEmailData) error
	SendRequestResolved(ctx context.Context, data *RequestResolvedEmailData) error
}

// Notifier delivers lifecycle notifications after the state change has been committed.
// Implementations must not block the caller.
type Notifier interface {
	EventModerated(ctx context.Context, event *Event)
	RequestsResolved(ctx context.Context, event *Event, reqs []*ParticipationRequest)
}
