package controllers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// statsTimestampLayout is the statistics service's date-time format. A fractional second is accepted on input.
const statsTimestampLayout = "2006-01-02 15:04:05"

// HitRequest is the request body for POST /hit.
type HitRequest struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// Validate implements Validator.
func (c HitRequest) Validate() []string {
	var errs []string
	if c.App == "" {
		errs = append(errs, "app is required")
	}
	if c.URI == "" {
		errs = append(errs, "uri is required")
	}
	if c.IP == "" {
		errs = append(errs, "ip is required")
	}
	if c.Timestamp == "" {
		errs = append(errs, "timestamp is required")
	} else if _, err := parseStatsTime(c.Timestamp); err != nil {
		errs = append(errs, "timestamp must be yyyy-MM-dd HH:mm:ss")
	}
	return errs
}

func parseStatsTime(s string) (time.Time, error) {
	return time.ParseInLocation(statsTimestampLayout, s, time.UTC)
}

// HitLimiter throttles hit ingestion per key.
type HitLimiter interface {
	Allow(key string) bool
	RetryAfter() time.Duration
}

// StatsController serves hit ingestion and view aggregation of the statistics service.
// Hits are throttled per visitor and app as named in the hit, not per caller: the
// callers are application servers reporting on behalf of many visitors.
type StatsController struct {
	Logger  *slog.Logger
	Service domain.StatsService
	Limiter HitLimiter
}

// NewStatsController wires the controller. limiter may be nil.
func NewStatsController(logger *slog.Logger, svc domain.StatsService, limiter HitLimiter) *StatsController {
	return &StatsController{
		Logger:  logger,
		Service: svc,
		Limiter: limiter,
	}
}

// RecordHit godoc
// @Summary Record an access
// @Tags stats
// @Accept json
// @Produce json
// @Param hit body HitRequest true "Access record"
// @Success 201 {object} helpers.APIResponse "data contains the stored hit"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Router /hit [post]
func (c *StatsController) RecordHit(w http.ResponseWriter, r *http.Request) {
	var req HitRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if c.Limiter != nil && !c.Limiter.Allow(req.App+"|"+strings.TrimSpace(req.IP)) {
		retry := int(c.Limiter.RetryAfter().Round(time.Second) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
		helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeTooManyRequests, "rate limit exceeded")
		return
	}
	ts, _ := parseStatsTime(req.Timestamp)
	hit := &domain.EndpointHit{App: req.App, URI: req.URI, IP: req.IP, Timestamp: ts}
	if err := c.Service.Record(r.Context(), hit); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, hit)
}

// GetStats godoc
// @Summary Aggregate views
// @Description Counts hits per app and uri with timestamp in [start, end], most viewed first. The body is a bare JSON array.
// @Tags stats
// @Produce json
// @Param start query string true "yyyy-MM-dd HH:mm:ss"
// @Param end query string true "yyyy-MM-dd HH:mm:ss"
// @Param uris query []string false "Only these uris" collectionFormat(multi)
// @Param unique query bool false "Count each ip once"
// @Success 200 {array} domain.ViewStats
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /stats [get]
func (c *StatsController) GetStats(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewStatsQuery(r)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	stats, err := c.Service.GetViewStats(r.Context(), q)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if stats == nil {
		stats = []*domain.ViewStats{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stats)
}

func parseViewStatsQuery(r *http.Request) (domain.ViewStatsQuery, error) {
	var q domain.ViewStatsQuery
	values := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		s := values.Get(p.name)
		if s == "" {
			return q, fmt.Errorf("%w: %s is required", domain.ErrValidation, p.name)
		}
		t, err := parseStatsTime(s)
		if err != nil {
			return q, fmt.Errorf("%w: %s must be yyyy-MM-dd HH:mm:ss", domain.ErrValidation, p.name)
		}
		*p.dst = t
	}
	q.URIs = helpers.QueryList(r, "uris")
	if s := values.Get("unique"); s != "" {
		unique, err := strconv.ParseBool(s)
		if err != nil {
			return q, fmt.Errorf("%w: unique must be true or false", domain.ErrValidation)
		}
		q.Unique = unique
	}
	return q, nil
}
