package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

const eventColumns = `id, owner_id, category_id, title, annotation, description, location_lat, location_lon,
		event_date, paid, participant_limit, request_moderation, state, confirmed_requests, created_on, published_on`

type eventRepository struct {
	DB dbtx
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var state string
	var publishedNull sql.NullTime
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.CategoryID, &e.Title, &e.Annotation, &e.Description,
		&e.Location.Lat, &e.Location.Lon, &e.EventDate, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &state, &e.ConfirmedRequests, &e.CreatedOn, &publishedNull,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	if publishedNull.Valid {
		e.PublishedOn = &publishedNull.Time
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (owner_id, category_id, title, annotation, description, location_lat, location_lon,
			event_date, paid, participant_limit, request_moderation, state, confirmed_requests, created_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OwnerID, e.CategoryID, e.Title, e.Annotation, e.Description, e.Location.Lat, e.Location.Lon,
		e.EventDate, e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State), e.ConfirmedRequests, e.CreatedOn,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Save(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET category_id = $1, title = $2, annotation = $3, description = $4, location_lat = $5, location_lon = $6,
			event_date = $7, paid = $8, participant_limit = $9, request_moderation = $10, state = $11,
			confirmed_requests = $12, published_on = $13
		WHERE id = $14
	`
	var published sql.NullTime
	if e.PublishedOn != nil {
		published = sql.NullTime{Time: *e.PublishedOn, Valid: true}
	}
	result, err := r.DB.ExecContext(ctx, query,
		e.CategoryID, e.Title, e.Annotation, e.Description, e.Location.Lat, e.Location.Lon,
		e.EventDate, e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State),
		e.ConfirmedRequests, published, e.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) UpdateFields(ctx context.Context, id string, f domain.EventFields) (*domain.Event, error) {
	var setClauses []string
	args := []any{}
	n := 1
	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if f.CategoryID != nil {
		set("category_id", *f.CategoryID)
	}
	if f.Title != nil {
		set("title", *f.Title)
	}
	if f.Annotation != nil {
		set("annotation", *f.Annotation)
	}
	if f.Description != nil {
		set("description", *f.Description)
	}
	if f.Location != nil {
		set("location_lat", f.Location.Lat)
		set("location_lon", f.Location.Lon)
	}
	if f.EventDate != nil {
		set("event_date", *f.EventDate)
	}
	if f.Paid != nil {
		set("paid", *f.Paid)
	}
	if f.ParticipantLimit != nil {
		set("participant_limit", *f.ParticipantLimit)
	}
	if f.RequestModeration != nil {
		set("request_moderation", *f.RequestModeration)
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) IncrementConfirmed(ctx context.Context, id string, delta int) error {
	query := `UPDATE events SET confirmed_requests = confirmed_requests + $1 WHERE id = $2`
	result, err := r.DB.ExecContext(ctx, query, delta, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) ListByOwner(ctx context.Context, ownerID string, params domain.PaginationParams) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_on DESC, id`
	args := []any{ownerID}
	if params.PageSize > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, params.PageSize, params.Offset())
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) Search(ctx context.Context, q domain.EventQuery) ([]*domain.Event, error) {
	var where []string
	args := []any{}
	n := 1
	cond := func(format string, value any) {
		where = append(where, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", n)))
		args = append(args, value)
		n++
	}
	if len(q.Owners) > 0 {
		cond("owner_id = ANY(?)", pq.Array(q.Owners))
	}
	if len(q.States) > 0 {
		states := make([]string, len(q.States))
		for i, s := range q.States {
			states[i] = string(s)
		}
		cond("state = ANY(?)", pq.Array(states))
	}
	if len(q.Categories) > 0 {
		cond("category_id = ANY(?)", pq.Array(q.Categories))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		cond("(title ILIKE ? OR annotation ILIKE ? OR description ILIKE ?)", "%"+text+"%")
	}
	if q.Paid != nil {
		cond("paid = ?", *q.Paid)
	}
	if q.RangeStart != nil {
		cond("event_date >= ?", *q.RangeStart)
	}
	if q.RangeEnd != nil {
		cond("event_date <= ?", *q.RangeEnd)
	}
	if q.OnlyAvailable {
		where = append(where, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY event_date ASC, id ASC`
	if q.Page.PageSize > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n, n+1)
		args = append(args, q.Page.PageSize, q.Page.Offset())
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
