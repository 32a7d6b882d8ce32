package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// HitRecorder queues access records for the statistics service.
type HitRecorder interface {
	RecordHit(hit domain.EndpointHit)
}

// EventController serves the public catalogue and the owner's event management.
// Every public read is reported to the statistics service as a hit of app.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Search  domain.SearchService
	Hits    HitRecorder
	App     string
	IPs     *helpers.IPResolver
	now     func() time.Time
}

// NewEventController wires the controller. ips may be nil, in which case hits carry the direct peer address.
func NewEventController(logger *slog.Logger, svc domain.EventService, search domain.SearchService, hits HitRecorder, app string, ips *helpers.IPResolver) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Search:  search,
		Hits:    hits,
		App:     app,
		IPs:     ips,
		now:     time.Now,
	}
}

func (c *EventController) recordHit(r *http.Request) {
	if c.Hits == nil {
		return
	}
	c.Hits.RecordHit(domain.EndpointHit{
		App:       c.App,
		URI:       r.URL.Path,
		IP:        c.IPs.ClientIP(r),
		Timestamp: c.now(),
	})
}

// SearchEvents godoc
// @Summary Search published events
// @Description Full-text and filter search over published events. Without rangeStart and rangeEnd only upcoming events are returned. sort is EVENT_DATE (default), VIEWS or RATING.
// @Tags public
// @Produce json
// @Param text query string false "Text matched against title, annotation and description (case-insensitive)"
// @Param categories query []string false "Category ids" collectionFormat(multi)
// @Param paid query bool false "Paid events only (true) or free only (false)"
// @Param rangeStart query string false "yyyy-MM-dd HH:mm:ss"
// @Param rangeEnd query string false "yyyy-MM-dd HH:mm:ss"
// @Param onlyAvailable query bool false "Exclude events with no seats left"
// @Param sort query string false "EVENT_DATE, VIEWS or RATING"
// @Param from query int false "Offset of the first event"
// @Param size query int false "Page size"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	c.recordHit(r)
	events, err := c.Search.SearchPublic(r.Context(), filter)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(filter.Page, len(events)),
	})
}

func parseEventFilter(r *http.Request) (domain.EventFilter, error) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Text:       strings.TrimSpace(q.Get("text")),
		Categories: helpers.QueryList(r, "categories"),
		Sort:       domain.EventSort(strings.ToUpper(q.Get("sort"))),
	}
	var err error
	if filter.Paid, err = helpers.QueryBool(r, "paid"); err != nil {
		return filter, err
	}
	if filter.RangeStart, err = helpers.QueryTime(r, "rangeStart"); err != nil {
		return filter, err
	}
	if filter.RangeEnd, err = helpers.QueryTime(r, "rangeEnd"); err != nil {
		return filter, err
	}
	available, err := helpers.QueryBool(r, "onlyAvailable")
	if err != nil {
		return filter, err
	}
	filter.OnlyAvailable = available != nil && *available
	if filter.Page, err = helpers.ParsePagination(r); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetEvent godoc
// @Summary Get a published event
// @Description Returns a published event with its unique view count. Events that are not published are reported as not found.
// @Tags public
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := helpers.PathUUID(r, "eventID")
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	c.recordHit(r)
	event, err := c.Service.GetPublishedEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a pending event owned by the caller. The event date must be at least two hours ahead.
// @Tags owner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body NewEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req NewEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	event := req.toEvent(userID)
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListMyEvents godoc
// @Summary List the caller's events
// @Tags owner
// @Produce json
// @Security BearerAuth
// @Param from query int false "Offset of the first event"
// @Param size query int false "Page size"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/events [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	params, err := helpers.ParsePagination(r)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	events, err := c.Service.ListOwnerEvents(r.Context(), userID, params)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(params, len(events)),
	})
}

// GetMyEvent godoc
// @Summary Get one of the caller's events
// @Tags owner
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me/events/{eventID} [get]
func (c *EventController) GetMyEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	eventID, err := helpers.PathUUID(r, "eventID")
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	event, err := c.Service.GetOwnerEvent(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateMyEvent godoc
// @Summary Update one of the caller's events
// @Description Edits fields and optionally applies SEND_TO_REVIEW or CANCEL_REVIEW. Published events cannot be changed.
// @Tags owner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /users/me/events/{eventID} [patch]
func (c *EventController) UpdateMyEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	eventID, err := helpers.PathUUID(r, "eventID")
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.ApplyOwnerAction(r.Context(), eventID, userID, req.action(), req.fields())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
