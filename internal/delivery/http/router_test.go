package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/repository/memory"
	"eventhub/internal/services"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubVerifier map[string]*domain.Claims

func (s stubVerifier) Verify(token string) (*domain.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, domain.ErrUnauthorized
}

type stubSearch struct{}

func (stubSearch) SearchPublic(context.Context, domain.EventFilter) ([]*domain.Event, error) {
	return []*domain.Event{}, nil
}

func (stubSearch) SearchAdmin(context.Context, domain.AdminEventFilter) ([]*domain.Event, error) {
	return []*domain.Event{}, nil
}

type stubStats struct{}

func (stubStats) Record(context.Context, *domain.EndpointHit) error { return nil }

func (stubStats) GetViewStats(context.Context, domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	return nil, nil
}

func TestNewRouter_Auth(t *testing.T) {
	verifier := stubVerifier{
		"user":  {UserID: "u1"},
		"admin": {UserID: "a1", Roles: []string{domain.RoleAdmin}},
	}
	c := Controllers{
		Events:   controllers.NewEventController(testLogger, nil, stubSearch{}, nil, "main", nil),
		Requests: controllers.NewRequestController(testLogger, nil),
		Admin:    controllers.NewAdminController(testLogger, nil, stubSearch{}),
	}
	mux := NewRouter(c, verifier, testLogger)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "public search", method: http.MethodGet, path: "/events", wantStatus: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "owner list needs token", method: http.MethodGet, path: "/users/me/events", wantStatus: http.StatusUnauthorized},
		{name: "admin needs role", method: http.MethodGet, path: "/admin/events", token: "user", wantStatus: http.StatusForbidden},
		{name: "admin search", method: http.MethodGet, path: "/admin/events", token: "admin", wantStatus: http.StatusOK},
		{name: "bad token", method: http.MethodGet, path: "/users/me/requests", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "method not allowed", method: http.MethodDelete, path: "/events", wantStatus: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestNewStatsRouter(t *testing.T) {
	r := NewStatsRouter(controllers.NewStatsController(testLogger, stubStats{}, nil), testLogger)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(`{"app":"main","uri":"/events","ip":"10.0.0.1","timestamp":"2026-01-01 10:00:00"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats?start=2026-01-01+00:00:00&end=2026-01-02+00:00:00", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestNewStatsRouter_OneCallerManyVisitors(t *testing.T) {
	svc := services.NewStatsService(memory.NewHitRepository(), time.Second)
	limiter := middleware.NewRateLimiter(50, 100, time.Minute)
	r := NewStatsRouter(controllers.NewStatsController(testLogger, svc, limiter), testLogger)

	post := func(ip string) int {
		body := fmt.Sprintf(`{"app":"main","uri":"/events/1","ip":%q,"timestamp":"2026-01-01 10:00:00"}`, ip)
		req := httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(body))
		req.RemoteAddr = "172.16.0.5:40000"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 150; i++ {
		require.Equal(t, http.StatusCreated, post(fmt.Sprintf("10.1.%d.%d", i/250, i%250+1)), "hit %d", i)
	}

	// A single visitor is still throttled once its burst is spent.
	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusCreated, post("203.0.113.1"))
	}
	require.Equal(t, http.StatusTooManyRequests, post("203.0.113.1"))

	stats, err := svc.GetViewStats(context.Background(), domain.ViewStatsQuery{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(250), stats[0].Hits)
}
