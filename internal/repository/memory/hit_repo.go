// Package memory holds in-process repositories for running the stats service without Postgres.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

type hitRepository struct {
	mu   sync.RWMutex
	hits []domain.EndpointHit
}

// NewHitRepository returns an empty in-memory access-record store.
func NewHitRepository() domain.HitRepository {
	return &hitRepository{}
}

func (r *hitRepository) Append(_ context.Context, hit *domain.EndpointHit) error {
	hit.ID = uuid.NewString()
	r.mu.Lock()
	r.hits = append(r.hits, *hit)
	r.mu.Unlock()
	return nil
}

type groupKey struct {
	app string
	uri string
}

func (r *hitRepository) ViewStats(_ context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	var uriSet map[string]struct{}
	if len(q.URIs) > 0 {
		uriSet = make(map[string]struct{}, len(q.URIs))
		for _, u := range q.URIs {
			uriSet[u] = struct{}{}
		}
	}

	counts := make(map[groupKey]int64)
	seen := make(map[groupKey]map[string]struct{})

	r.mu.RLock()
	for _, h := range r.hits {
		if h.Timestamp.Before(q.Start) || h.Timestamp.After(q.End) {
			continue
		}
		if uriSet != nil {
			if _, ok := uriSet[h.URI]; !ok {
				continue
			}
		}
		key := groupKey{app: h.App, uri: h.URI}
		if q.Unique {
			ips, ok := seen[key]
			if !ok {
				ips = make(map[string]struct{})
				seen[key] = ips
			}
			if _, dup := ips[h.IP]; dup {
				continue
			}
			ips[h.IP] = struct{}{}
		}
		counts[key]++
	}
	r.mu.RUnlock()

	stats := make([]*domain.ViewStats, 0, len(counts))
	for key, n := range counts {
		stats = append(stats, &domain.ViewStats{App: key.app, URI: key.uri, Hits: n})
	}
	domain.SortViewStats(stats)
	return stats, nil
}
