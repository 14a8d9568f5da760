package match

import "schuldhulp/pkg/types"

// Event describes something the lifecycle manager did. The manager never
// sends mail itself; the caller inspects the events and decides what to
// dispatch, which keeps this package testable without a mail transport.
type Event interface {
	Kind() string
}

// MatchesCreated: a batch of matches was persisted for a help request.
type MatchesCreated struct {
	HelpRequestID string
	Matches       []*types.Match
}

func (MatchesCreated) Kind() string { return "matches_created" }

// MatchAccepted: an organisation accepted; contact details may now be
// disclosed to it.
type MatchAccepted struct {
	HelpRequestID  string
	OrganisationID string
	Note           *string
}

func (MatchAccepted) Kind() string { return "match_accepted" }

// MatchRejected: an organisation declined. No notification is sent for
// this event today; it exists so the audit trail is complete.
type MatchRejected struct {
	HelpRequestID  string
	OrganisationID string
	Note           *string
}

func (MatchRejected) Kind() string { return "match_rejected" }

// MatchesExpired: pending matches of a help request passed their deadline
// during a sweep.
type MatchesExpired struct {
	HelpRequestID string
}

func (MatchesExpired) Kind() string { return "matches_expired" }

// HelpRequestReverted: the last pending match is gone without an
// acceptance; the request needs re-matching.
type HelpRequestReverted struct {
	HelpRequestID string
}

func (HelpRequestReverted) Kind() string { return "help_request_reverted" }
