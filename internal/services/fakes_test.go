package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"eventhub/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeStore is the shared in-memory state behind the fake repositories and transactor.
// Repositories return copies so a rolled-back transaction leaves no trace.
type fakeStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	events   map[string]domain.Event
	requests map[string]domain.ParticipationRequest
	nextEv   int
	nextReq  int

	searchErr    error
	saveAllErr   error
	incrementErr error
	lastQuery    domain.EventQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]domain.Event),
		requests: make(map[string]domain.ParticipationRequest),
		nextEv:   1,
		nextReq:  1,
	}
}

func (s *fakeStore) addEvent(e domain.Event) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", s.nextEv)
		s.nextEv++
	}
	s.events[e.ID] = e
	return &e
}

func (s *fakeStore) addRequest(r domain.ParticipationRequest) *domain.ParticipationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = fmt.Sprintf("req-%d", s.nextReq)
		s.nextReq++
	}
	s.requests[r.ID] = r
	return &r
}

func (s *fakeStore) event(id string) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

func (s *fakeStore) request(id string) domain.ParticipationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *fakeStore) countStatus(eventID string, status domain.RequestStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n
}

func (s *fakeStore) repos() domain.Repositories {
	return domain.Repositories{Events: &fakeEventRepo{s}, Requests: &fakeRequestRepo{s}}
}

// fakeTransactor serializes units of work and restores the store when fn fails.
type fakeTransactor struct {
	store *fakeStore
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	t.store.mu.Lock()
	events := make(map[string]domain.Event, len(t.store.events))
	for k, v := range t.store.events {
		events[k] = v
	}
	requests := make(map[string]domain.ParticipationRequest, len(t.store.requests))
	for k, v := range t.store.requests {
		requests[k] = v
	}
	t.store.mu.Unlock()

	if err := fn(ctx, t.store.repos()); err != nil {
		t.store.mu.Lock()
		t.store.events = events
		t.store.requests = requests
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type fakeEventRepo struct {
	s *fakeStore
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e.ID = fmt.Sprintf("ev-%d", f.s.nextEv)
	f.s.nextEv++
	f.s.events[e.ID] = *e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEventRepo) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEventRepo) Save(ctx context.Context, e *domain.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	f.s.events[e.ID] = *e
	return nil
}

func (f *fakeEventRepo) UpdateFields(ctx context.Context, id string, fields domain.EventFields) (*domain.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fields.ApplyTo(&e)
	f.s.events[id] = e
	return &e, nil
}

func (f *fakeEventRepo) IncrementConfirmed(ctx context.Context, id string, delta int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.incrementErr != nil {
		return f.s.incrementErr
	}
	e, ok := f.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.ConfirmedRequests += delta
	f.s.events[id] = e
	return nil
}

func (f *fakeEventRepo) ListByOwner(ctx context.Context, ownerID string, params domain.PaginationParams) ([]*domain.Event, error) {
	return f.Search(ctx, domain.EventQuery{Owners: []string{ownerID}, Page: params})
}

func (f *fakeEventRepo) Search(ctx context.Context, q domain.EventQuery) ([]*domain.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.lastQuery = q
	if f.s.searchErr != nil {
		return nil, f.s.searchErr
	}
	contains := func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := []*domain.Event{}
	for _, e := range f.s.events {
		if len(q.Owners) > 0 && !contains(q.Owners, e.OwnerID) {
			continue
		}
		if len(q.States) > 0 {
			match := false
			for _, st := range q.States {
				match = match || st == e.State
			}
			if !match {
				continue
			}
		}
		if len(q.Categories) > 0 && !contains(q.Categories, e.CategoryID) {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Annotation+" "+e.Description), text) {
			continue
		}
		if q.Paid != nil && e.Paid != *q.Paid {
			continue
		}
		if q.RangeStart != nil && e.EventDate.Before(*q.RangeStart) {
			continue
		}
		if q.RangeEnd != nil && e.EventDate.After(*q.RangeEnd) {
			continue
		}
		if q.OnlyAvailable && e.IsFull() {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return domain.Paginate(out, q.Page), nil
}

type fakeRequestRepo struct {
	s *fakeStore
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *domain.ParticipationRequest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.requests {
		if existing.EventID == r.EventID && existing.RequesterID == r.RequesterID {
			return domain.ErrConflict
		}
	}
	r.ID = fmt.Sprintf("req-%d", f.s.nextReq)
	f.s.nextReq++
	f.s.requests[r.ID] = *r
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRequestRepo) FindByIDs(ctx context.Context, ids []string) ([]*domain.ParticipationRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*domain.ParticipationRequest{}
	for _, id := range ids {
		if r, ok := f.s.requests[id]; ok {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) SaveAll(ctx context.Context, reqs []*domain.ParticipationRequest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.saveAllErr != nil {
		return f.s.saveAllErr
	}
	for _, r := range reqs {
		if _, ok := f.s.requests[r.ID]; !ok {
			return domain.ErrNotFound
		}
		f.s.requests[r.ID] = *r
	}
	return nil
}

func (f *fakeRequestRepo) FindByEventAndRequester(ctx context.Context, eventID, requesterID string) (*domain.ParticipationRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.requests {
		if r.EventID == eventID && r.RequesterID == requesterID {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRequestRepo) list(match func(r domain.ParticipationRequest) bool) []*domain.ParticipationRequest {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*domain.ParticipationRequest{}
	for _, r := range f.s.requests {
		if match(r) {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRequestRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.ParticipationRequest, error) {
	return f.list(func(r domain.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (f *fakeRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	return f.list(func(r domain.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

// fakeStatsClient answers view queries from a fixed table keyed by uri.
type fakeStatsClient struct {
	mu      sync.Mutex
	raw     map[string]int64
	unique  map[string]int64
	err     error
	calls   int
	queries []domain.ViewStatsQuery
	hits    []domain.EndpointHit
}

func (f *fakeStatsClient) RecordHit(hit domain.EndpointHit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, hit)
}

func (f *fakeStatsClient) GetViewStats(ctx context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	table := f.raw
	if q.Unique {
		table = f.unique
	}
	out := []*domain.ViewStats{}
	for _, uri := range q.URIs {
		if n, ok := table[uri]; ok {
			out = append(out, &domain.ViewStats{App: "eventhub", URI: uri, Hits: n})
		}
	}
	domain.SortViewStats(out)
	return out, nil
}

type fakeViewCache struct {
	views  map[string]int64
	getErr error
	sets   int
}

func (f *fakeViewCache) GetViews(ctx context.Context, uris []string) (map[string]int64, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := map[string]int64{}
	for _, u := range uris {
		if n, ok := f.views[u]; ok {
			out[u] = n
		}
	}
	return out, nil
}

func (f *fakeViewCache) SetViews(ctx context.Context, views map[string]int64) error {
	f.sets++
	if f.views == nil {
		f.views = map[string]int64{}
	}
	for k, v := range views {
		f.views[k] = v
	}
	return nil
}

type fakeRatings struct {
	scores map[string]float64
	err    error
}

func (f *fakeRatings) Ratings(ctx context.Context, ids []string) (map[string]float64, error) {
	return f.scores, f.err
}

// fakeNotifier records notifications synchronously.
type fakeNotifier struct {
	mu        sync.Mutex
	moderated []domain.Event
	resolved  []domain.ParticipationRequest
}

func (f *fakeNotifier) EventModerated(ctx context.Context, e *domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moderated = append(f.moderated, *e)
}

func (f *fakeNotifier) RequestsResolved(ctx context.Context, e *domain.Event, reqs []*domain.ParticipationRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range reqs {
		f.resolved = append(f.resolved, *r)
	}
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

// fakeEmailService is a test double for EmailService.
type fakeEmailService struct {
	mu        sync.Mutex
	moderated []*domain.EventModeratedEmailData
	resolved  []*domain.RequestResolvedEmailData
	err       error
}

func (f *fakeEmailService) SendEventModerated(ctx context.Context, data *domain.EventModeratedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moderated = append(f.moderated, data)
	return f.err
}

func (f *fakeEmailService) SendRequestResolved(ctx context.Context, data *domain.RequestResolvedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, data)
	return f.err
}

var errStorage = errors.New("storage down")

// fixedClock returns a clock stuck at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
