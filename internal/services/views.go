package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/metrics"
)

// viewCounter resolves view counts of events through the stats service. Raw counts go
// through the cache when one is configured; unique counts are always fetched.
type viewCounter struct {
	stats  domain.StatsClient
	cache  domain.ViewCache
	logger *slog.Logger
	now    func() time.Time
}

func newViewCounter(stats domain.StatsClient, cache domain.ViewCache, logger *slog.Logger) *viewCounter {
	return &viewCounter{stats: stats, cache: cache, logger: logger, now: time.Now}
}

// count returns views keyed by event URI. Every event gets an entry; events without hits count 0.
// The query window runs from the oldest event's creation up to now, in one stats call.
func (v *viewCounter) count(ctx context.Context, events []*domain.Event, unique bool) (map[string]int64, error) {
	views := make(map[string]int64, len(events))
	if len(events) == 0 {
		return views, nil
	}
	useCache := v.cache != nil && !unique

	uris := make([]string, 0, len(events))
	for _, e := range events {
		uris = append(uris, e.URI())
	}
	missing := uris
	if useCache {
		cached, err := v.cache.GetViews(ctx, uris)
		if err != nil {
			v.logger.DebugContext(ctx, "view cache read failed", "err", err)
		}
		missing = missing[:0:0]
		for _, uri := range uris {
			if n, ok := cached[uri]; ok {
				views[uri] = n
				continue
			}
			missing = append(missing, uri)
		}
		if len(missing) == 0 {
			return views, nil
		}
	}
	if v.stats == nil {
		metrics.StatsUnavailable.Inc()
		return nil, fmt.Errorf("stats client is not configured")
	}

	end := v.now()
	start := end
	for _, e := range events {
		if e.CreatedOn.Before(start) {
			start = e.CreatedOn
		}
	}
	if !start.Before(end) {
		start = end.Add(-time.Second)
	}

	stats, err := v.stats.GetViewStats(ctx, domain.ViewStatsQuery{
		Start:  start,
		End:    end,
		URIs:   missing,
		Unique: unique,
	})
	if err != nil {
		metrics.StatsUnavailable.Inc()
		return nil, fmt.Errorf("get view stats: %w", err)
	}

	fetched := make(map[string]int64, len(missing))
	for _, uri := range missing {
		fetched[uri] = 0
	}
	for _, s := range stats {
		if _, ok := fetched[s.URI]; ok {
			fetched[s.URI] += s.Hits
		}
	}
	for uri, n := range fetched {
		views[uri] = n
	}
	if useCache {
		if err := v.cache.SetViews(ctx, fetched); err != nil {
			v.logger.DebugContext(ctx, "view cache write failed", "err", err)
		}
	}
	return views, nil
}
