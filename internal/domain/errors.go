package domain

import "errors"

// Sentinel errors shared by services and repositories. Services wrap them with
// detail via fmt.Errorf("%w: ...", ErrX); controllers map them with errors.Is.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the resource or lacks a role.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned when no valid credentials were presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState is returned when an operation is illegal for the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is returned when a batch references already-resolved requests or a unique pair is reused.
	ErrConflict = errors.New("conflict")
	// ErrCapacityExceeded is returned when an event has no seats left.
	ErrCapacityExceeded = errors.New("participant limit reached")
)
