package domain

import (
	"context"
	"time"
)

// RequestStatus is the status of a participation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCanceled  RequestStatus = "CANCELED"
)

// ParticipationRequest is a user's request to attend an event.
// swagger:model ParticipationRequest
type ParticipationRequest struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event_id"`
	RequesterID string        `json:"requester_id"`
	Created     time.Time     `json:"created"`
	Status      RequestStatus `json:"status"`
}

// NewParticipationRequest returns a request with the given status. ID is set by the repository on create.
func NewParticipationRequest(eventID, requesterID string, status RequestStatus, created time.Time) *ParticipationRequest {
	return &ParticipationRequest{
		EventID:     eventID,
		RequesterID: requesterID,
		Created:     created,
		Status:      status,
	}
}

// RequestStatusUpdate is an arbitration batch submitted by the event owner.
type RequestStatusUpdate struct {
	RequestIDs []string      `json:"request_ids"`
	Status     RequestStatus `json:"status"`
}

// RequestStatusUpdateResult lists the outcome of an arbitration batch.
// Overflow rejections are reported together with explicit ones.
// swagger:model RequestStatusUpdateResult
type RequestStatusUpdateResult struct {
	ConfirmedRequests []*ParticipationRequest `json:"confirmed_requests"`
	RejectedRequests  []*ParticipationRequest `json:"rejected_requests"`
}

// RequestRepository defines storage for participation requests.
type RequestRepository interface {
	Create(ctx context.Context, req *ParticipationRequest) error
	GetByID(ctx context.Context, id string) (*ParticipationRequest, error)
	// FindByIDs returns the requests that exist, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*ParticipationRequest, error)
	// SaveAll writes the status of every request.
	SaveAll(ctx context.Context, reqs []*ParticipationRequest) error
	FindByEventAndRequester(ctx context.Context, eventID, requesterID string) (*ParticipationRequest, error)
	ListByEvent(ctx context.Context, eventID string) ([]*ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*ParticipationRequest, error)
}

// Repositories groups repositories bound to one transaction.
type Repositories struct {
	Events   EventRepository
	Requests RequestRepository
}

// Transactor runs units of work atomically. If fn returns an error every write made
// through repos is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// RequestService is the Request Arbitration Engine plus requester-side operations.
type RequestService interface {
	CreateRequest(ctx context.Context, userID, eventID string) (*ParticipationRequest, error)
	CancelRequest(ctx context.Context, userID, requestID string) (*ParticipationRequest, error)
	ListUserRequests(ctx context.Context, userID string) ([]*ParticipationRequest, error)
	ListEventRequests(ctx context.Context, eventID, ownerID string) ([]*ParticipationRequest, error)
	UpdateRequestStatuses(ctx context.Context, eventID, ownerID string, upd RequestStatusUpdate) (*RequestStatusUpdateResult, error)
}
