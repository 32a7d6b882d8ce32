package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

var eventRowColumns = []string{
	"id", "owner_id", "category_id", "title", "annotation", "description", "location_lat", "location_lon",
	"event_date", "paid", "participant_limit", "request_moderation", "state", "confirmed_requests", "created_on", "published_on",
}

var (
	testCreatedOn = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	testEventDate = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
)

func eventRow(id, state string, limit, confirmed int, published any) *sqlmock.Rows {
	return sqlmock.NewRows(eventRowColumns).AddRow(
		id, "owner-1", "cat-1", "Go meetup", "Talks about Go", "An evening of talks", 55.75, 37.61,
		testEventDate, false, limit, true, state, confirmed, testCreatedOn, published,
	)
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(owner_id, category_id, title`).
					WithArgs("owner-1", "cat-1", "Go meetup", "Talks about Go", "An evening of talks", 55.75, 37.61,
						testEventDate, false, 10, true, "PENDING", 0, testCreatedOn).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-uuid-1"))
			},
			wantID: "ev-uuid-1",
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			e := domain.NewEvent("owner-1", "cat-1", "Go meetup", "Talks about Go", "An evening of talks",
				domain.Location{Lat: 55.75, Lon: 37.61}, testEventDate, false, 10, true, testCreatedOn)
			err = NewEventRepository(db).Create(ctx, e)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, e.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	publishedOn := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.Event
		wantErr error
	}{
		{
			name: "success",
			id:   "ev-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, owner_id, category_id, title .* FROM events WHERE id = \$1`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", "PUBLISHED", 10, 4, publishedOn))
			},
			want: &domain.Event{
				ID:                "ev-1",
				OwnerID:           "owner-1",
				CategoryID:        "cat-1",
				Title:             "Go meetup",
				Annotation:        "Talks about Go",
				Description:       "An evening of talks",
				Location:          domain.Location{Lat: 55.75, Lon: 37.61},
				EventDate:         testEventDate,
				ParticipantLimit:  10,
				RequestModeration: true,
				State:             domain.EventStatePublished,
				ConfirmedRequests: 4,
				CreatedOn:         testCreatedOn,
				PublishedOn:       &publishedOn,
			},
		},
		{
			name: "not found",
			id:   "ev-missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, owner_id`).
					WithArgs("ev-missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewEventRepository(db).GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", "PENDING", 0, 0, nil))

	got, err := NewEventRepository(db).GetForUpdate(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, domain.EventStatePending, got.State)
	require.Nil(t, got.PublishedOn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Save(t *testing.T) {
	publishedOn := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "success", affected: 1},
		{name: "not found", affected: 0, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE events SET category_id = \$1`).
				WithArgs("cat-1", "Go meetup", "", "", 0.0, 0.0, testEventDate, false, 5, true, "PUBLISHED", 2,
					sqlmock.AnyArg(), "ev-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			e := &domain.Event{
				ID: "ev-1", CategoryID: "cat-1", Title: "Go meetup", EventDate: testEventDate,
				ParticipantLimit: 5, RequestModeration: true, State: domain.EventStatePublished,
				ConfirmedRequests: 2, PublishedOn: &publishedOn,
			}
			err = NewEventRepository(db).Save(context.Background(), e)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_UpdateFields(t *testing.T) {
	ctx := context.Background()

	t.Run("builds set clause from present fields", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		title := "Renamed"
		limit := 20
		loc := domain.Location{Lat: 1.5, Lon: 2.5}
		mock.ExpectQuery(`UPDATE events SET title = \$1, location_lat = \$2, location_lon = \$3, participant_limit = \$4 WHERE id = \$5 RETURNING`).
			WithArgs("Renamed", 1.5, 2.5, 20, "ev-1").
			WillReturnRows(eventRow("ev-1", "PENDING", 20, 0, nil))

		got, err := NewEventRepository(db).UpdateFields(ctx, "ev-1", domain.EventFields{
			Title: &title, Location: &loc, ParticipantLimit: &limit,
		})
		require.NoError(t, err)
		require.Equal(t, 20, got.ParticipantLimit)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no fields fetches current row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, owner_id`).
			WithArgs("ev-1").
			WillReturnRows(eventRow("ev-1", "PENDING", 0, 0, nil))

		got, err := NewEventRepository(db).UpdateFields(ctx, "ev-1", domain.EventFields{})
		require.NoError(t, err)
		require.Equal(t, "ev-1", got.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		paid := true
		mock.ExpectQuery(`UPDATE events SET paid = \$1 WHERE id = \$2`).
			WithArgs(true, "missing").
			WillReturnError(sql.ErrNoRows)

		_, err = NewEventRepository(db).UpdateFields(ctx, "missing", domain.EventFields{Paid: &paid})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEventRepository_IncrementConfirmed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE events SET confirmed_requests = confirmed_requests \+ \$1 WHERE id = \$2`).
		WithArgs(-1, "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewEventRepository(db).IncrementConfirmed(context.Background(), "ev-1", -1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events WHERE owner_id = \$1 ORDER BY created_on DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("owner-1", 10, 10).
		WillReturnRows(eventRow("ev-1", "PENDING", 0, 0, nil))

	got, err := NewEventRepository(db).ListByOwner(context.Background(), "owner-1", domain.PaginationParams{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("all filters", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		paid := false
		start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`FROM events WHERE state = ANY\(\$1\) AND category_id = ANY\(\$2\) AND \(title ILIKE \$3 OR annotation ILIKE \$3 OR description ILIKE \$3\) AND paid = \$4 AND event_date >= \$5 AND event_date <= \$6 AND \(participant_limit = 0 OR confirmed_requests < participant_limit\) ORDER BY event_date ASC, id ASC LIMIT \$7 OFFSET \$8`).
			WithArgs(pq.Array([]string{"PUBLISHED"}), pq.Array([]string{"cat-1", "cat-2"}), "%go%", false, start, end, 10, 0).
			WillReturnRows(eventRow("ev-1", "PUBLISHED", 10, 2, testCreatedOn))

		got, err := NewEventRepository(db).Search(ctx, domain.EventQuery{
			States:        []domain.EventState{domain.EventStatePublished},
			Categories:    []string{"cat-1", "cat-2"},
			Text:          " go ",
			Paid:          &paid,
			RangeStart:    &start,
			RangeEnd:      &end,
			OnlyAvailable: true,
			Page:          domain.PaginationParams{Page: 1, PageSize: 10},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "ev-1", got[0].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filters returns empty slice", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM events ORDER BY event_date ASC, id ASC$`).
			WillReturnRows(sqlmock.NewRows(eventRowColumns))

		got, err := NewEventRepository(db).Search(ctx, domain.EventQuery{})
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
