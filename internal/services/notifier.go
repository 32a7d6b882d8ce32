package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eventhub/internal/domain"
)

// EmailNotifier sends lifecycle emails in the background once a change is committed.
// Failures are logged and never reach the caller.
type EmailNotifier struct {
	users   domain.UserRepository
	email   domain.EmailService
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewEmailNotifier(users domain.UserRepository, email domain.EmailService, logger *slog.Logger, timeout time.Duration) *EmailNotifier {
	return &EmailNotifier{users: users, email: email, logger: logger, timeout: timeout}
}

func (n *EmailNotifier) EventModerated(ctx context.Context, event *domain.Event) {
	if event.State != domain.EventStatePublished && event.State != domain.EventStateCanceled {
		return
	}
	snapshot := *event
	n.goSend(ctx, func(ctx context.Context) {
		owner, err := n.users.GetByID(ctx, snapshot.OwnerID)
		if err != nil {
			n.logger.WarnContext(ctx, "moderation email skipped", "event_id", snapshot.ID, "err", err)
			return
		}
		data := &domain.EventModeratedEmailData{
			Email:      owner.Email,
			OwnerName:  owner.FullName(),
			EventTitle: snapshot.Title,
			EventID:    snapshot.ID,
			State:      snapshot.State,
		}
		if err := n.email.SendEventModerated(ctx, data); err != nil {
			n.logger.WarnContext(ctx, "moderation email failed", "event_id", snapshot.ID, "err", err)
		}
	})
}

func (n *EmailNotifier) RequestsResolved(ctx context.Context, event *domain.Event, reqs []*domain.ParticipationRequest) {
	if len(reqs) == 0 {
		return
	}
	title, eventID := event.Title, event.ID
	resolved := make([]domain.ParticipationRequest, len(reqs))
	for i, r := range reqs {
		resolved[i] = *r
	}
	n.goSend(ctx, func(ctx context.Context) {
		for _, r := range resolved {
			requester, err := n.users.GetByID(ctx, r.RequesterID)
			if err != nil {
				n.logger.WarnContext(ctx, "request email skipped", "request_id", r.ID, "err", err)
				continue
			}
			data := &domain.RequestResolvedEmailData{
				Email:         requester.Email,
				RequesterName: requester.FullName(),
				EventTitle:    title,
				EventID:       eventID,
				RequestID:     r.ID,
				Status:        r.Status,
			}
			if err := n.email.SendRequestResolved(ctx, data); err != nil {
				n.logger.WarnContext(ctx, "request email failed", "request_id", r.ID, "err", err)
			}
		}
	})
}

func (n *EmailNotifier) goSend(ctx context.Context, fn func(ctx context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every queued notification has finished.
func (n *EmailNotifier) Wait() {
	n.wg.Wait()
}
