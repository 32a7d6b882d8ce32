package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID   = "5b0c8f5e-6c57-4a53-9d0e-3a1f2b7c8d90"
	testRequestID = "0f7d3a7e-5b1c-4c55-8e2a-9b6d4c3e2f10"
)

func withUser(r *http.Request, userID string, roles ...string) *http.Request {
	return r.WithContext(middleware.SetClaims(r.Context(), &domain.Claims{UserID: userID, Roles: roles}))
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err    error
	result *domain.Event
	list   []*domain.Event

	lastCreate      *domain.Event
	lastEventID     string
	lastUserID      string
	lastAction      domain.StateAction
	lastFields      domain.EventFields
	lastPagination  domain.PaginationParams
	adminActionUsed bool
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastCreate = event
	if f.err != nil {
		return f.err
	}
	event.ID = testEventID
	return nil
}

func (f *fakeEventService) GetOwnerEvent(_ context.Context, eventID, ownerID string) (*domain.Event, error) {
	f.lastEventID, f.lastUserID = eventID, ownerID
	return f.result, f.err
}

func (f *fakeEventService) ListOwnerEvents(_ context.Context, ownerID string, params domain.PaginationParams) ([]*domain.Event, error) {
	f.lastUserID, f.lastPagination = ownerID, params
	return f.list, f.err
}

func (f *fakeEventService) GetPublishedEvent(_ context.Context, eventID string) (*domain.Event, error) {
	f.lastEventID = eventID
	return f.result, f.err
}

func (f *fakeEventService) ApplyUpdate(_ context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastEventID, f.lastAction, f.lastFields = eventID, upd.Action, upd.Fields
	return f.result, f.err
}

func (f *fakeEventService) ApplyAdminAction(ctx context.Context, eventID string, action domain.StateAction, fields domain.EventFields) (*domain.Event, error) {
	f.adminActionUsed = true
	return f.ApplyUpdate(ctx, eventID, domain.EventUpdate{Actor: domain.ActorAdmin, Action: action, Fields: fields})
}

func (f *fakeEventService) ApplyOwnerAction(ctx context.Context, eventID, requesterID string, action domain.StateAction, fields domain.EventFields) (*domain.Event, error) {
	f.lastUserID = requesterID
	return f.ApplyUpdate(ctx, eventID, domain.EventUpdate{Actor: domain.ActorOwner, RequesterID: requesterID, Action: action, Fields: fields})
}

// fakeSearchService implements domain.SearchService.
type fakeSearchService struct {
	err        error
	result     []*domain.Event
	lastPublic *domain.EventFilter
	lastAdmin  *domain.AdminEventFilter
}

func (f *fakeSearchService) SearchPublic(_ context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	f.lastPublic = &filter
	return f.result, f.err
}

func (f *fakeSearchService) SearchAdmin(_ context.Context, filter domain.AdminEventFilter) ([]*domain.Event, error) {
	f.lastAdmin = &filter
	return f.result, f.err
}

// fakeRequestService implements domain.RequestService.
type fakeRequestService struct {
	err          error
	result       *domain.ParticipationRequest
	list         []*domain.ParticipationRequest
	updateResult *domain.RequestStatusUpdateResult

	lastUserID    string
	lastEventID   string
	lastRequestID string
	lastUpdate    domain.RequestStatusUpdate
}

func (f *fakeRequestService) CreateRequest(_ context.Context, userID, eventID string) (*domain.ParticipationRequest, error) {
	f.lastUserID, f.lastEventID = userID, eventID
	return f.result, f.err
}

func (f *fakeRequestService) CancelRequest(_ context.Context, userID, requestID string) (*domain.ParticipationRequest, error) {
	f.lastUserID, f.lastRequestID = userID, requestID
	return f.result, f.err
}

func (f *fakeRequestService) ListUserRequests(_ context.Context, userID string) ([]*domain.ParticipationRequest, error) {
	f.lastUserID = userID
	return f.list, f.err
}

func (f *fakeRequestService) ListEventRequests(_ context.Context, eventID, ownerID string) ([]*domain.ParticipationRequest, error) {
	f.lastEventID, f.lastUserID = eventID, ownerID
	return f.list, f.err
}

func (f *fakeRequestService) UpdateRequestStatuses(_ context.Context, eventID, ownerID string, upd domain.RequestStatusUpdate) (*domain.RequestStatusUpdateResult, error) {
	f.lastEventID, f.lastUserID, f.lastUpdate = eventID, ownerID, upd
	return f.updateResult, f.err
}

// fakeStatsService implements domain.StatsService.
type fakeStatsService struct {
	err       error
	stats     []*domain.ViewStats
	lastHit   *domain.EndpointHit
	lastQuery domain.ViewStatsQuery
}

func (f *fakeStatsService) Record(_ context.Context, hit *domain.EndpointHit) error {
	f.lastHit = hit
	return f.err
}

func (f *fakeStatsService) GetViewStats(_ context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	f.lastQuery = q
	return f.stats, f.err
}

// fakeHits records hits handed to the dispatcher.
type fakeHits struct {
	mu   sync.Mutex
	hits []domain.EndpointHit
}

func (f *fakeHits) RecordHit(hit domain.EndpointHit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, hit)
}
