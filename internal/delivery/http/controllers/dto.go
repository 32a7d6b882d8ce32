package controllers

import (
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// NewEventRequest is the request body for POST /users/me/events.
// event_date uses the "yyyy-MM-dd HH:mm:ss" layout.
type NewEventRequest struct {
	CategoryID        string          `json:"category_id"`
	Title             string          `json:"title"`
	Annotation        string          `json:"annotation"`
	Description       string          `json:"description"`
	Location          domain.Location `json:"location"`
	EventDate         string          `json:"event_date"`
	Paid              bool            `json:"paid"`
	ParticipantLimit  int             `json:"participant_limit"`
	RequestModeration *bool           `json:"request_moderation"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c NewEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	} else if n := len([]rune(c.Title)); n < 3 || n > 120 {
		errs = append(errs, "title must be 3 to 120 characters")
	}
	if strings.TrimSpace(c.Annotation) == "" {
		errs = append(errs, "annotation is required")
	} else if n := len([]rune(c.Annotation)); n < 20 || n > 2000 {
		errs = append(errs, "annotation must be 20 to 2000 characters")
	}
	if strings.TrimSpace(c.Description) == "" {
		errs = append(errs, "description is required")
	} else if n := len([]rune(c.Description)); n < 20 || n > 7000 {
		errs = append(errs, "description must be 20 to 7000 characters")
	}
	if c.CategoryID == "" {
		errs = append(errs, "category_id is required")
	}
	if c.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must not be negative")
	}
	if c.EventDate == "" {
		errs = append(errs, "event_date is required")
	} else if _, err := helpers.ParseTimestamp(c.EventDate); err != nil {
		errs = append(errs, "event_date must be yyyy-MM-dd HH:mm:ss")
	}
	return errs
}

// toEvent builds a pending event owned by ownerID. Validate must have passed.
// The service stamps the creation time.
func (c NewEventRequest) toEvent(ownerID string) *domain.Event {
	date, _ := helpers.ParseTimestamp(c.EventDate)
	moderation := true
	if c.RequestModeration != nil {
		moderation = *c.RequestModeration
	}
	return domain.NewEvent(ownerID, c.CategoryID, c.Title, c.Annotation, c.Description, c.Location,
		date, c.Paid, c.ParticipantLimit, moderation, time.Time{})
}

// UpdateEventRequest is the request body for PATCH on an event, by its owner or an admin.
// All fields are optional; omitted fields are unchanged. state_action is one of
// SEND_TO_REVIEW, CANCEL_REVIEW (owner) or PUBLISH_EVENT, REJECT_EVENT (admin).
type UpdateEventRequest struct {
	CategoryID        *string          `json:"category_id"`
	Title             *string          `json:"title"`
	Annotation        *string          `json:"annotation"`
	Description       *string          `json:"description"`
	Location          *domain.Location `json:"location"`
	EventDate         *string          `json:"event_date"`
	Paid              *bool            `json:"paid"`
	ParticipantLimit  *int             `json:"participant_limit"`
	RequestModeration *bool            `json:"request_moderation"`
	StateAction       string           `json:"state_action"`
}

// Validate implements Validator. Only format rules are checked here; lifecycle rules live in the service.
func (c UpdateEventRequest) Validate() []string {
	var errs []string
	if c.Title != nil {
		if n := len([]rune(*c.Title)); n < 3 || n > 120 {
			errs = append(errs, "title must be 3 to 120 characters")
		}
	}
	if c.Annotation != nil {
		if n := len([]rune(*c.Annotation)); n < 20 || n > 2000 {
			errs = append(errs, "annotation must be 20 to 2000 characters")
		}
	}
	if c.Description != nil {
		if n := len([]rune(*c.Description)); n < 20 || n > 7000 {
			errs = append(errs, "description must be 20 to 7000 characters")
		}
	}
	if c.ParticipantLimit != nil && *c.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must not be negative")
	}
	if c.EventDate != nil {
		if _, err := helpers.ParseTimestamp(*c.EventDate); err != nil {
			errs = append(errs, "event_date must be yyyy-MM-dd HH:mm:ss")
		}
	}
	switch domain.StateAction(c.StateAction) {
	case domain.StateActionNone, domain.StateActionPublish, domain.StateActionReject,
		domain.StateActionSendToReview, domain.StateActionCancelReview:
	default:
		errs = append(errs, "unknown state_action "+c.StateAction)
	}
	return errs
}

func (c UpdateEventRequest) action() domain.StateAction {
	return domain.StateAction(c.StateAction)
}

// fields converts the body to domain fields. Validate must have passed.
func (c UpdateEventRequest) fields() domain.EventFields {
	f := domain.EventFields{
		CategoryID:        c.CategoryID,
		Title:             c.Title,
		Annotation:        c.Annotation,
		Description:       c.Description,
		Location:          c.Location,
		Paid:              c.Paid,
		ParticipantLimit:  c.ParticipantLimit,
		RequestModeration: c.RequestModeration,
	}
	if c.EventDate != nil {
		date, _ := helpers.ParseTimestamp(*c.EventDate)
		f.EventDate = &date
	}
	return f
}

// UpdateRequestStatusesRequest is the request body for PATCH /users/me/events/{eventID}/requests.
type UpdateRequestStatusesRequest struct {
	RequestIDs []string `json:"request_ids"`
	Status     string   `json:"status"`
}

// Validate implements Validator.
func (c UpdateRequestStatusesRequest) Validate() []string {
	var errs []string
	if len(c.RequestIDs) == 0 {
		errs = append(errs, "request_ids is required")
	}
	switch domain.RequestStatus(c.Status) {
	case domain.RequestStatusConfirmed, domain.RequestStatusRejected:
	default:
		errs = append(errs, "status must be CONFIRMED or REJECTED")
	}
	return errs
}

// EventListResponse is the data of paginated event lists.
// swagger:model EventListResponse
type EventListResponse struct {
	Events     []*domain.Event        `json:"events"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success envelope for event lists.
type EventListSuccessResponse struct {
	Data  EventListResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// RequestSuccessResponse is the success envelope for endpoints returning one participation request.
type RequestSuccessResponse struct {
	Data  *domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// RequestListSuccessResponse is the success envelope for participation request lists.
type RequestListSuccessResponse struct {
	Data  []*domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

// RequestStatusUpdateSuccessResponse is the success envelope for request arbitration.
type RequestStatusUpdateSuccessResponse struct {
	Data  *domain.RequestStatusUpdateResult `json:"data"`
	Error *helpers.APIError                 `json:"error"`
}
