package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"eventhub/internal/domain"
)

type searchService struct {
	eventRepo      domain.EventRepository
	views          *viewCounter
	ratings        domain.RatingProvider
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

// NewSearchService returns the public and admin event search. cache and ratings may be nil.
func NewSearchService(eventRepo domain.EventRepository,
	stats domain.StatsClient,
	cache domain.ViewCache,
	ratings domain.RatingProvider,
	logger *slog.Logger,
	timeout time.Duration,
) domain.SearchService {
	if ratings == nil {
		ratings = NoRatings{}
	}
	return &searchService{
		eventRepo:      eventRepo,
		views:          newViewCounter(stats, cache, logger),
		ratings:        ratings,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// SearchPublic returns published events matching filter, decorated with raw view counts.
// If the stats service is unavailable views stay 0 and VIEWS ordering falls back to event date.
func (s *searchService) SearchPublic(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	sortBy := filter.Sort
	if sortBy == "" {
		sortBy = domain.SortEventDate
	}
	if sortBy != domain.SortEventDate && sortBy != domain.SortViews && sortBy != domain.SortRating {
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrValidation, filter.Sort)
	}
	if filter.RangeStart != nil && filter.RangeEnd != nil && filter.RangeEnd.Before(*filter.RangeStart) {
		return nil, fmt.Errorf("%w: range end is before range start", domain.ErrValidation)
	}

	q := domain.EventQuery{
		States:        []domain.EventState{domain.EventStatePublished},
		Categories:    filter.Categories,
		Text:          filter.Text,
		Paid:          filter.Paid,
		RangeStart:    filter.RangeStart,
		RangeEnd:      filter.RangeEnd,
		OnlyAvailable: filter.OnlyAvailable,
	}
	if q.RangeStart == nil && q.RangeEnd == nil {
		now := s.now()
		q.RangeStart = &now
	}
	// Event-date order is done by the database, so pagination can be too.
	if sortBy == domain.SortEventDate {
		q.Page = filter.Page
	}

	events, err := s.eventRepo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}

	views, err := s.views.count(ctx, events, false)
	if err != nil {
		s.logger.WarnContext(ctx, "view counts unavailable, falling back to event date order", "err", err)
		views = nil
		if sortBy == domain.SortViews {
			sortBy = domain.SortEventDate
		}
	}
	for _, e := range events {
		e.Views = views[e.URI()]
	}

	switch sortBy {
	case domain.SortEventDate:
		if filter.Sort == domain.SortEventDate || filter.Sort == "" {
			return events, nil
		}
		// Fallback from VIEWS: the repository already returned date order.
	case domain.SortViews:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Views != events[j].Views {
				return events[i].Views > events[j].Views
			}
			return events[i].EventDate.Before(events[j].EventDate)
		})
	case domain.SortRating:
		if err := s.sortByRating(ctx, events); err != nil {
			s.logger.WarnContext(ctx, "ratings unavailable, keeping event date order", "err", err)
		}
	}
	return domain.Paginate(events, filter.Page), nil
}

func (s *searchService) sortByRating(ctx context.Context, events []*domain.Event) error {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	ratings, err := s.ratings.Ratings(ctx, ids)
	if err != nil {
		return err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return ratings[events[i].ID] > ratings[events[j].ID]
	})
	return nil
}

// SearchAdmin lists events in any state for moderation. Results are not decorated with views.
func (s *searchService) SearchAdmin(ctx context.Context, filter domain.AdminEventFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for _, st := range filter.States {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, st)
		}
	}
	if filter.RangeStart != nil && filter.RangeEnd != nil && filter.RangeEnd.Before(*filter.RangeStart) {
		return nil, fmt.Errorf("%w: range end is before range start", domain.ErrValidation)
	}
	events, err := s.eventRepo.Search(ctx, domain.EventQuery{
		Owners:     filter.Owners,
		States:     filter.States,
		Categories: filter.Categories,
		RangeStart: filter.RangeStart,
		RangeEnd:   filter.RangeEnd,
		Page:       filter.Page,
	})
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

// NoRatings is the default RatingProvider: every event scores 0, so RATING keeps event date order.
type NoRatings struct{}

func (NoRatings) Ratings(_ context.Context, eventIDs []string) (map[string]float64, error) {
	return make(map[string]float64, len(eventIDs)), nil
}
