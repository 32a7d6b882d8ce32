package domain

import (
	"context"
	"sort"
	"time"
)

// EndpointHit is one access record: a request to uri of app from ip at Timestamp.
// swagger:model EndpointHit
type EndpointHit struct {
	ID        string    `json:"id,omitempty"`
	App       string    `json:"app"`
	URI       string    `json:"uri"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewStats is the hit count of one (app, uri) group. It is computed, never stored.
// swagger:model ViewStats
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// ViewStatsQuery selects hits with Timestamp in [Start, End]. Empty URIs means all uris.
// Unique counts each ip once per (app, uri).
type ViewStatsQuery struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

// SortViewStats orders stats by hits descending, then uri and app ascending.
func SortViewStats(stats []*ViewStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Hits != stats[j].Hits {
			return stats[i].Hits > stats[j].Hits
		}
		if stats[i].URI != stats[j].URI {
			return stats[i].URI < stats[j].URI
		}
		return stats[i].App < stats[j].App
	})
}

// HitRepository is the append-only store of access records.
type HitRepository interface {
	Append(ctx context.Context, hit *EndpointHit) error
	// ViewStats aggregates per (app, uri) and returns the groups ordered as SortViewStats does.
	ViewStats(ctx context.Context, q ViewStatsQuery) ([]*ViewStats, error)
}

// StatsService is the statistics service: hit ingestion and view aggregation.
type StatsService interface {
	Record(ctx context.Context, hit *EndpointHit) error
	GetViewStats(ctx context.Context, q ViewStatsQuery) ([]*ViewStats, error)
}

// StatsClient is the main service's view of the statistics service.
type StatsClient interface {
	// RecordHit queues a hit and returns immediately.
	RecordHit(hit EndpointHit)
	GetViewStats(ctx context.Context, q ViewStatsQuery) ([]*ViewStats, error)
}

// ViewCache caches view counts by uri.
type ViewCache interface {
	// GetViews returns the cached counts; uris missing from the result were not cached.
	GetViews(ctx context.Context, uris []string) (map[string]int64, error)
	SetViews(ctx context.Context, views map[string]int64) error
}
