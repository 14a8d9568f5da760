package types

import "errors"

var (
	ErrOrganisationNotFound = errors.New("organisation not found")
	ErrHelpRequestNotFound  = errors.New("help request not found")
	ErrMatchNotFound        = errors.New("match not found")

	// ErrAlreadyResponded means the match already left pending; a second
	// accept/reject must fail, not silently succeed.
	ErrAlreadyResponded = errors.New("match already responded to")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidLocation   = errors.New("gemeente and a usable postcode are required")
	ErrNoCapacity        = errors.New("organisation has no free capacity")
)
