package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// AdminController serves moderation: listing events in any state and publishing or rejecting them.
type AdminController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Search  domain.SearchService
}

func NewAdminController(logger *slog.Logger, svc domain.EventService, search domain.SearchService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
		Search:  search,
	}
}

// SearchEvents godoc
// @Summary Search events for moderation
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param users query []string false "Owner ids" collectionFormat(multi)
// @Param states query []string false "PENDING, PUBLISHED or CANCELED" collectionFormat(multi)
// @Param categories query []string false "Category ids" collectionFormat(multi)
// @Param rangeStart query string false "yyyy-MM-dd HH:mm:ss"
// @Param rangeEnd query string false "yyyy-MM-dd HH:mm:ss"
// @Param from query int false "Offset of the first event"
// @Param size query int false "Page size"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/events [get]
func (c *AdminController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter := domain.AdminEventFilter{
		Owners:     helpers.QueryList(r, "users"),
		Categories: helpers.QueryList(r, "categories"),
	}
	for _, s := range helpers.QueryList(r, "states") {
		filter.States = append(filter.States, domain.EventState(strings.ToUpper(s)))
	}
	var err error
	if filter.RangeStart, err = helpers.QueryTime(r, "rangeStart"); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if filter.RangeEnd, err = helpers.QueryTime(r, "rangeEnd"); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if filter.Page, err = helpers.ParsePagination(r); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	events, err := c.Search.SearchAdmin(r.Context(), filter)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(filter.Page, len(events)),
	})
}

// UpdateEvent godoc
// @Summary Moderate an event
// @Description Edits fields and optionally applies PUBLISH_EVENT or REJECT_EVENT. Only pending events can be published or rejected.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /admin/events/{eventID} [patch]
func (c *AdminController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := helpers.PathUUID(r, "eventID")
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.ApplyAdminAction(r.Context(), eventID, req.action(), req.fields())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
