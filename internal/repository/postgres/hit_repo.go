package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eventhub/internal/domain"
)

type hitRepository struct {
	DB *sql.DB
}

// NewHitRepository returns the Postgres access-record store used by the stats service.
func NewHitRepository(db *sql.DB) domain.HitRepository {
	return &hitRepository{DB: db}
}

func (r *hitRepository) Append(ctx context.Context, hit *domain.EndpointHit) error {
	query := `
		INSERT INTO hits (app, uri, ip, hit_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, hit.App, hit.URI, hit.IP, hit.Timestamp).Scan(&hit.ID)
}

func (r *hitRepository) ViewStats(ctx context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	count := "COUNT(*)"
	if q.Unique {
		count = "COUNT(DISTINCT ip)"
	}
	args := []any{q.Start, q.End}
	where := "hit_at BETWEEN $1 AND $2"
	if len(q.URIs) > 0 {
		placeholders := make([]string, len(q.URIs))
		for i, uri := range q.URIs {
			placeholders[i] = fmt.Sprintf("$%d", i+3)
			args = append(args, uri)
		}
		where += " AND uri IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query := fmt.Sprintf(`
		SELECT app, uri, %s AS hits
		FROM hits
		WHERE %s
		GROUP BY app, uri
		ORDER BY hits DESC, uri COLLATE "C" ASC, app COLLATE "C" ASC
	`, count, where)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []*domain.ViewStats{}
	for rows.Next() {
		s := &domain.ViewStats{}
		if err := rows.Scan(&s.App, &s.URI, &s.Hits); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
