package domain

import (
	"context"
	"time"
)

// EventState is the moderation state of an event.
type EventState string

const (
	EventStatePending   EventState = "PENDING"
	EventStatePublished EventState = "PUBLISHED"
	EventStateCanceled  EventState = "CANCELED"
)

// Valid reports whether s is a known state.
func (s EventState) Valid() bool {
	switch s {
	case EventStatePending, EventStatePublished, EventStateCanceled:
		return true
	}
	return false
}

// Location is the geographic point of an event.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event represents a user-published event.
// swagger:model Event
type Event struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	CategoryID        string     `json:"category_id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	Location          Location   `json:"location"`
	EventDate         time.Time  `json:"event_date"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	State             EventState `json:"state"`
	ConfirmedRequests int        `json:"confirmed_requests"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on"`
	// Views is derived from the statistics service and never stored.
	Views int64 `json:"views"`
}

// NewEvent returns a PENDING event owned by ownerID. ID is set by the repository on create.
func NewEvent(ownerID, categoryID, title, annotation, description string, loc Location, eventDate time.Time, paid bool, limit int, moderation bool, createdOn time.Time) *Event {
	return &Event{
		OwnerID:           ownerID,
		CategoryID:        categoryID,
		Title:             title,
		Annotation:        annotation,
		Description:       description,
		Location:          loc,
		EventDate:         eventDate,
		Paid:              paid,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             EventStatePending,
		CreatedOn:         createdOn,
	}
}

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// RemainingSeats returns the free seats of a limited event. It is meaningless when Unlimited.
func (e *Event) RemainingSeats() int {
	return e.ParticipantLimit - e.ConfirmedRequests
}

// IsFull reports whether a limited event has no seats left.
func (e *Event) IsFull() bool {
	return !e.Unlimited() && e.ConfirmedRequests >= e.ParticipantLimit
}

// NeedsConfirmation reports whether new requests wait for the owner instead of auto-confirming.
func (e *Event) NeedsConfirmation() bool {
	return e.RequestModeration && !e.Unlimited()
}

// URI is the public path of the event; it is what the statistics service counts.
func (e *Event) URI() string {
	return "/events/" + e.ID
}

// EventFields carries optional field updates. A nil pointer leaves the field unchanged.
type EventFields struct {
	CategoryID        *string    `json:"category_id,omitempty"`
	Title             *string    `json:"title,omitempty"`
	Annotation        *string    `json:"annotation,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Location          *Location  `json:"location,omitempty"`
	EventDate         *time.Time `json:"event_date,omitempty"`
	Paid              *bool      `json:"paid,omitempty"`
	ParticipantLimit  *int       `json:"participant_limit,omitempty"`
	RequestModeration *bool      `json:"request_moderation,omitempty"`
}

// Empty reports whether no field is set.
func (f EventFields) Empty() bool {
	return f.CategoryID == nil && f.Title == nil && f.Annotation == nil && f.Description == nil &&
		f.Location == nil && f.EventDate == nil && f.Paid == nil && f.ParticipantLimit == nil &&
		f.RequestModeration == nil
}

// ApplyTo merges the set fields into e.
func (f EventFields) ApplyTo(e *Event) {
	if f.CategoryID != nil {
		e.CategoryID = *f.CategoryID
	}
	if f.Title != nil {
		e.Title = *f.Title
	}
	if f.Annotation != nil {
		e.Annotation = *f.Annotation
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.Location != nil {
		e.Location = *f.Location
	}
	if f.EventDate != nil {
		e.EventDate = *f.EventDate
	}
	if f.Paid != nil {
		e.Paid = *f.Paid
	}
	if f.ParticipantLimit != nil {
		e.ParticipantLimit = *f.ParticipantLimit
	}
	if f.RequestModeration != nil {
		e.RequestModeration = *f.RequestModeration
	}
}

// Actor discriminates who is updating an event.
type Actor string

const (
	ActorAdmin Actor = "ADMIN"
	ActorOwner Actor = "OWNER"
)

// StateAction is the lifecycle action attached to an event update.
type StateAction string

const (
	StateActionNone         StateAction = ""
	StateActionPublish      StateAction = "PUBLISH_EVENT"
	StateActionReject       StateAction = "REJECT_EVENT"
	StateActionSendToReview StateAction = "SEND_TO_REVIEW"
	StateActionCancelReview StateAction = "CANCEL_REVIEW"
)

// AllowedFor reports whether the action can be requested by actor.
func (a StateAction) AllowedFor(actor Actor) bool {
	switch a {
	case StateActionNone:
		return true
	case StateActionPublish, StateActionReject:
		return actor == ActorAdmin
	case StateActionSendToReview, StateActionCancelReview:
		return actor == ActorOwner
	}
	return false
}

// EventUpdate is a single update request for an event, discriminated by Actor.
// RequesterID is only meaningful for ActorOwner.
type EventUpdate struct {
	Actor       Actor
	RequesterID string
	Action      StateAction
	Fields      EventFields
}

// EventSort is the ordering of public search results.
type EventSort string

const (
	SortEventDate EventSort = "EVENT_DATE"
	SortViews     EventSort = "VIEWS"
	SortRating    EventSort = "RATING"
)

// EventFilter is the public search filter. Only PUBLISHED events match.
type EventFilter struct {
	Text          string
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          EventSort
	Page          PaginationParams
}

// AdminEventFilter is the moderation search filter.
type AdminEventFilter struct {
	Owners     []string
	States     []EventState
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	Page       PaginationParams
}

// EventQuery is the storage-level search. Zero values mean "no filter".
// When Page.PageSize is 0 every match is returned.
type EventQuery struct {
	Owners        []string
	States        []EventState
	Categories    []string
	Text          string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Page          PaginationParams
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetForUpdate loads the event and holds its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Event, error)
	// Save writes every mutable column of event in a single row update.
	Save(ctx context.Context, event *Event) error
	UpdateFields(ctx context.Context, id string, fields EventFields) (*Event, error)
	// IncrementConfirmed adds delta to confirmed_requests. Callers hold the row lock.
	IncrementConfirmed(ctx context.Context, id string, delta int) error
	ListByOwner(ctx context.Context, ownerID string, params PaginationParams) ([]*Event, error)
	// Search returns matches ordered by event date ascending.
	Search(ctx context.Context, q EventQuery) ([]*Event, error)
}

// EventService is the Event Lifecycle Manager plus owner/public reads.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetOwnerEvent(ctx context.Context, eventID, ownerID string) (*Event, error)
	ListOwnerEvents(ctx context.Context, ownerID string, params PaginationParams) ([]*Event, error)
	GetPublishedEvent(ctx context.Context, eventID string) (*Event, error)
	ApplyUpdate(ctx context.Context, eventID string, upd EventUpdate) (*Event, error)
	ApplyAdminAction(ctx context.Context, eventID string, action StateAction, fields EventFields) (*Event, error)
	ApplyOwnerAction(ctx context.Context, eventID, requesterID string, action StateAction, fields EventFields) (*Event, error)
}

// SearchService is the Event Search/Ranking façade.
type SearchService interface {
	SearchPublic(ctx context.Context, filter EventFilter) ([]*Event, error)
	SearchAdmin(ctx context.Context, filter AdminEventFilter) ([]*Event, error)
}

// RatingProvider supplies the external ranking signal used by SortRating.
type RatingProvider interface {
	Ratings(ctx context.Context, eventIDs []string) (map[string]float64, error)
}
