package services

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/metrics"
)

type statsService struct {
	hitRepo        domain.HitRepository
	now            func() time.Time
	contextTimeout time.Duration
}

func NewStatsService(hitRepo domain.HitRepository, timeout time.Duration) domain.StatsService {
	return &statsService{
		hitRepo:        hitRepo,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// Record validates and stores one access record.
func (s *statsService) Record(ctx context.Context, hit *domain.EndpointHit) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	hit.App = strings.TrimSpace(hit.App)
	hit.URI = strings.TrimSpace(hit.URI)
	switch {
	case hit.App == "":
		return fmt.Errorf("%w: app is required", domain.ErrValidation)
	case hit.URI == "":
		return fmt.Errorf("%w: uri is required", domain.ErrValidation)
	case hit.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	case hit.Timestamp.After(s.now()):
		return fmt.Errorf("%w: timestamp is in the future", domain.ErrValidation)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(hit.IP))
	if err != nil {
		return fmt.Errorf("%w: malformed ip %q", domain.ErrValidation, hit.IP)
	}
	hit.IP = addr.Unmap().String()

	if err := s.hitRepo.Append(ctx, hit); err != nil {
		return fmt.Errorf("append hit: %w", err)
	}
	metrics.HitsRecorded.Inc()
	return nil
}

// GetViewStats aggregates hits in [q.Start, q.End]. An empty match set is not an error.
func (s *statsService) GetViewStats(ctx context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !q.Start.Before(q.End) {
		return nil, fmt.Errorf("%w: start must be before end", domain.ErrValidation)
	}
	metrics.StatsQueries.WithLabelValues(strconv.FormatBool(q.Unique)).Inc()

	stats, err := s.hitRepo.ViewStats(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("view stats: %w", err)
	}
	return stats, nil
}
