package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/metrics"
)

type requestService struct {
	eventRepo      domain.EventRepository
	requestRepo    domain.RequestRepository
	tx             domain.Transactor
	notifier       domain.Notifier
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

func NewRequestService(eventRepo domain.EventRepository,
	requestRepo domain.RequestRepository,
	tx domain.Transactor,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RequestService {
	return &requestService{
		eventRepo:      eventRepo,
		requestRepo:    requestRepo,
		tx:             tx,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// CreateRequest files a participation request. It is confirmed on the spot when the event
// has no seat limit or does not moderate requests.
func (s *requestService) CreateRequest(ctx context.Context, userID, eventID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var created *domain.ParticipationRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		event, err := repos.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID == userID {
			return fmt.Errorf("%w: owners cannot request their own event", domain.ErrConflict)
		}
		if event.State != domain.EventStatePublished {
			return fmt.Errorf("%w: event is not published", domain.ErrInvalidState)
		}
		if event.IsFull() {
			return fmt.Errorf("%w: no seats left", domain.ErrCapacityExceeded)
		}
		_, err = repos.Requests.FindByEventAndRequester(ctx, eventID, userID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: request already exists", domain.ErrConflict)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		status := domain.RequestStatusPending
		if !event.NeedsConfirmation() {
			status = domain.RequestStatusConfirmed
		}
		req := domain.NewParticipationRequest(eventID, userID, status, s.now())
		if err := repos.Requests.Create(ctx, req); err != nil {
			return err
		}
		if status == domain.RequestStatusConfirmed {
			if err := repos.Events.IncrementConfirmed(ctx, eventID, 1); err != nil {
				return err
			}
		}
		created = req
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create request: %w", err)
	}
	return created, nil
}

// CancelRequest withdraws the caller's own request and frees its seat if it was confirmed.
func (s *requestService) CancelRequest(ctx context.Context, userID, requestID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var canceled *domain.ParticipationRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		req, err := repos.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.RequesterID != userID {
			return domain.ErrForbidden
		}
		// Status changes happen under the event lock, so read the request again once we hold it.
		if _, err := repos.Events.GetForUpdate(ctx, req.EventID); err != nil {
			return err
		}
		if req, err = repos.Requests.GetByID(ctx, requestID); err != nil {
			return err
		}
		wasConfirmed := req.Status == domain.RequestStatusConfirmed
		if req.Status != domain.RequestStatusPending && !wasConfirmed {
			return fmt.Errorf("%w: request is %s", domain.ErrInvalidState, req.Status)
		}
		req.Status = domain.RequestStatusCanceled
		if err := repos.Requests.SaveAll(ctx, []*domain.ParticipationRequest{req}); err != nil {
			return err
		}
		if wasConfirmed {
			if err := repos.Events.IncrementConfirmed(ctx, req.EventID, -1); err != nil {
				return err
			}
		}
		canceled = req
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	return canceled, nil
}

func (s *requestService) ListUserRequests(ctx context.Context, userID string) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reqs, err := s.requestRepo.ListByRequester(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

func (s *requestService) ListEventRequests(ctx context.Context, eventID, ownerID string) ([]*domain.ParticipationRequest, error) {
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
	reqs, err := s.requestRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// UpdateRequestStatuses resolves a batch of pending requests. The batch either applies
// completely or not at all; seat accounting and status writes share one transaction
// that holds the event row lock.
func (s *requestService) UpdateRequestStatuses(ctx context.Context, eventID, ownerID string, upd domain.RequestStatusUpdate) (*domain.RequestStatusUpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		event  *domain.Event
		result *domain.RequestStatusUpdateResult
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		event, err = repos.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		if err := validateStatusUpdate(upd); err != nil {
			return err
		}

		found, err := repos.Requests.FindByIDs(ctx, upd.RequestIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.ParticipationRequest, len(found))
		for _, r := range found {
			byID[r.ID] = r
		}
		ordered := make([]*domain.ParticipationRequest, 0, len(upd.RequestIDs))
		for _, id := range upd.RequestIDs {
			r, ok := byID[id]
			if !ok || r.EventID != eventID {
				return fmt.Errorf("%w: request %s", domain.ErrNotFound, id)
			}
			ordered = append(ordered, r)
		}
		for _, r := range ordered {
			if r.Status != domain.RequestStatusPending {
				return fmt.Errorf("%w: request %s is already %s", domain.ErrConflict, r.ID, r.Status)
			}
		}

		result, err = arbitrate(event, ordered, upd.Status)
		if err != nil {
			return err
		}
		if err := repos.Requests.SaveAll(ctx, ordered); err != nil {
			return err
		}
		if n := len(result.ConfirmedRequests); n > 0 {
			if err := repos.Events.IncrementConfirmed(ctx, eventID, n); err != nil {
				return err
			}
			event.ConfirmedRequests += n
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update request statuses: %w", err)
	}

	metrics.RequestsResolved.WithLabelValues(string(domain.RequestStatusConfirmed)).Add(float64(len(result.ConfirmedRequests)))
	metrics.RequestsResolved.WithLabelValues(string(domain.RequestStatusRejected)).Add(float64(len(result.RejectedRequests)))
	if s.notifier != nil {
		resolved := make([]*domain.ParticipationRequest, 0, len(result.ConfirmedRequests)+len(result.RejectedRequests))
		resolved = append(resolved, result.ConfirmedRequests...)
		resolved = append(resolved, result.RejectedRequests...)
		s.notifier.RequestsResolved(ctx, event, resolved)
	}
	return result, nil
}

func validateStatusUpdate(upd domain.RequestStatusUpdate) error {
	if upd.Status != domain.RequestStatusConfirmed && upd.Status != domain.RequestStatusRejected {
		return fmt.Errorf("%w: status must be CONFIRMED or REJECTED", domain.ErrValidation)
	}
	if len(upd.RequestIDs) == 0 {
		return fmt.Errorf("%w: request_ids must not be empty", domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(upd.RequestIDs))
	for _, id := range upd.RequestIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate request id %s", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// arbitrate sets the status of every request in reqs, in order, and reports the outcome.
// Confirmations beyond the free seats of a moderated, limited event become rejections.
func arbitrate(event *domain.Event, reqs []*domain.ParticipationRequest, status domain.RequestStatus) (*domain.RequestStatusUpdateResult, error) {
	result := &domain.RequestStatusUpdateResult{
		ConfirmedRequests: []*domain.ParticipationRequest{},
		RejectedRequests:  []*domain.ParticipationRequest{},
	}
	if status == domain.RequestStatusRejected {
		for _, r := range reqs {
			r.Status = domain.RequestStatusRejected
			result.RejectedRequests = append(result.RejectedRequests, r)
		}
		return result, nil
	}
	if !event.NeedsConfirmation() {
		for _, r := range reqs {
			r.Status = domain.RequestStatusConfirmed
			result.ConfirmedRequests = append(result.ConfirmedRequests, r)
		}
		return result, nil
	}

	remaining := event.RemainingSeats()
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: no seats left", domain.ErrCapacityExceeded)
	}
	for _, r := range reqs {
		if remaining > 0 {
			r.Status = domain.RequestStatusConfirmed
			result.ConfirmedRequests = append(result.ConfirmedRequests, r)
			remaining--
			continue
		}
		r.Status = domain.RequestStatusRejected
		result.RejectedRequests = append(result.RejectedRequests, r)
	}
	return result, nil
}
