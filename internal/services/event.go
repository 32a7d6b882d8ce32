package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/metrics"
)

const (
	// publishLead is how far ahead of the event date an admin may still publish it.
	publishLead = time.Hour
	// ownerDateLead is the minimum distance between now and an owner-chosen event date.
	ownerDateLead = 2 * time.Hour
)

type eventService struct {
	eventRepo      domain.EventRepository
	tx             domain.Transactor
	views          *viewCounter
	notifier       domain.Notifier
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	tx domain.Transactor,
	stats domain.StatsClient,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		tx:             tx,
		views:          newViewCounter(stats, nil, logger),
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OwnerID == "" {
		return fmt.Errorf("%w: event owner is required", domain.ErrValidation)
	}
	if err := validateNewEvent(event, s.now()); err != nil {
		return err
	}

	now := s.now()
	event.State = domain.EventStatePending
	event.ConfirmedRequests = 0
	event.CreatedOn = now
	event.PublishedOn = nil
	event.Views = 0

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func validateNewEvent(e *domain.Event, now time.Time) error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	case strings.TrimSpace(e.Annotation) == "":
		return fmt.Errorf("%w: annotation is required", domain.ErrValidation)
	case strings.TrimSpace(e.Description) == "":
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	case e.CategoryID == "":
		return fmt.Errorf("%w: category is required", domain.ErrValidation)
	case e.ParticipantLimit < 0:
		return fmt.Errorf("%w: participant limit must not be negative", domain.ErrValidation)
	case e.EventDate.Before(now.Add(ownerDateLead)):
		return fmt.Errorf("%w: event date must be at least %s from now", domain.ErrValidation, ownerDateLead)
	}
	return nil
}

func (s *eventService) GetOwnerEvent(ctx context.Context, eventID, ownerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) ListOwnerEvents(ctx context.Context, ownerID string, params domain.PaginationParams) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetPublishedEvent returns a published event decorated with its unique view count.
// Unpublished events are reported as not found.
func (s *eventService) GetPublishedEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.State != domain.EventStatePublished {
		return nil, domain.ErrNotFound
	}

	views, err := s.views.count(ctx, []*domain.Event{event}, true)
	if err != nil {
		s.logger.WarnContext(ctx, "view count unavailable", "event_id", event.ID, "err", err)
		return event, nil
	}
	event.Views = views[event.URI()]
	return event, nil
}

func (s *eventService) ApplyAdminAction(ctx context.Context, eventID string, action domain.StateAction, fields domain.EventFields) (*domain.Event, error) {
	return s.ApplyUpdate(ctx, eventID, domain.EventUpdate{
		Actor:  domain.ActorAdmin,
		Action: action,
		Fields: fields,
	})
}

func (s *eventService) ApplyOwnerAction(ctx context.Context, eventID, requesterID string, action domain.StateAction, fields domain.EventFields) (*domain.Event, error) {
	return s.ApplyUpdate(ctx, eventID, domain.EventUpdate{
		Actor:       domain.ActorOwner,
		RequesterID: requesterID,
		Action:      action,
		Fields:      fields,
	})
}

// ApplyUpdate runs one lifecycle update under the event row lock.
func (s *eventService) ApplyUpdate(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.Actor != domain.ActorAdmin && upd.Actor != domain.ActorOwner {
		return nil, fmt.Errorf("%w: unknown actor %q", domain.ErrValidation, upd.Actor)
	}
	if !upd.Action.AllowedFor(upd.Actor) {
		return nil, fmt.Errorf("%w: action %q is not available", domain.ErrValidation, upd.Action)
	}
	now := s.now()
	if err := validateFields(upd, now); err != nil {
		return nil, err
	}

	var updated *domain.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		event, err := repos.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		switch upd.Actor {
		case domain.ActorAdmin:
			if event.State != domain.EventStatePending {
				return fmt.Errorf("%w: event is %s, only pending events can be moderated", domain.ErrInvalidState, event.State)
			}
		case domain.ActorOwner:
			if event.OwnerID != upd.RequesterID {
				return domain.ErrForbidden
			}
			if event.State == domain.EventStatePublished {
				return fmt.Errorf("%w: published events cannot be changed", domain.ErrInvalidState)
			}
		}

		if l := upd.Fields.ParticipantLimit; l != nil && *l > 0 && *l < event.ConfirmedRequests {
			return fmt.Errorf("%w: participant limit %d is below %d confirmed requests", domain.ErrValidation, *l, event.ConfirmedRequests)
		}

		if upd.Action == domain.StateActionNone {
			updated, err = repos.Events.UpdateFields(ctx, eventID, upd.Fields)
			return err
		}

		upd.Fields.ApplyTo(event)
		switch upd.Action {
		case domain.StateActionPublish:
			if event.EventDate.Before(now.Add(publishLead)) {
				return fmt.Errorf("%w: event date must be at least %s after publication", domain.ErrValidation, publishLead)
			}
			event.State = domain.EventStatePublished
			event.PublishedOn = &now
		case domain.StateActionReject, domain.StateActionCancelReview:
			event.State = domain.EventStateCanceled
		case domain.StateActionSendToReview:
			event.State = domain.EventStatePending
		}
		if err := repos.Events.Save(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	if upd.Actor == domain.ActorAdmin && upd.Action != domain.StateActionNone {
		metrics.EventsModerated.WithLabelValues(string(updated.State)).Inc()
		if s.notifier != nil {
			s.notifier.EventModerated(ctx, updated)
		}
	}
	return updated, nil
}

func validateFields(upd domain.EventUpdate, now time.Time) error {
	f := upd.Fields
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", domain.ErrValidation)
	}
	if f.Annotation != nil && strings.TrimSpace(*f.Annotation) == "" {
		return fmt.Errorf("%w: annotation must not be blank", domain.ErrValidation)
	}
	if f.Description != nil && strings.TrimSpace(*f.Description) == "" {
		return fmt.Errorf("%w: description must not be blank", domain.ErrValidation)
	}
	if f.CategoryID != nil && *f.CategoryID == "" {
		return fmt.Errorf("%w: category must not be blank", domain.ErrValidation)
	}
	if f.ParticipantLimit != nil && *f.ParticipantLimit < 0 {
		return fmt.Errorf("%w: participant limit must not be negative", domain.ErrValidation)
	}
	if upd.Actor == domain.ActorOwner && f.EventDate != nil && f.EventDate.Before(now.Add(ownerDateLead)) {
		return fmt.Errorf("%w: event date must be at least %s from now", domain.ErrValidation, ownerDateLead)
	}
	return nil
}

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrForbidden,
	domain.ErrUnauthorized,
	domain.ErrValidation,
	domain.ErrInvalidState,
	domain.ErrConflict,
	domain.ErrCapacityExceeded,
}

// isDomainError reports whether err carries one of the domain sentinels and can be returned as is.
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
