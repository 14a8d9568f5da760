package types

import "time"

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
	MatchStatusExpired  MatchStatus = "expired"
)

// CanTransition enforces the match state machine: pending is the only
// non-terminal state.
func (s MatchStatus) CanTransition(to MatchStatus) bool {
	if s != MatchStatusPending {
		return false
	}
	switch to {
	case MatchStatusAccepted, MatchStatusRejected, MatchStatusExpired:
		return true
	}
	return false
}

func (s MatchStatus) Terminal() bool {
	return s != MatchStatusPending
}

type MatchDecision string

const (
	MatchDecisionAccept MatchDecision = "accept"
	MatchDecisionReject MatchDecision = "reject"
)

func (d MatchDecision) Valid() bool {
	return d == MatchDecisionAccept || d == MatchDecisionReject
}

// Status returns the terminal match status a decision resolves to.
func (d MatchDecision) Status() MatchStatus {
	if d == MatchDecisionAccept {
		return MatchStatusAccepted
	}
	return MatchStatusRejected
}

// MatchResponseWindow is how long an organisation has to respond to a match.
const MatchResponseWindow = 48 * time.Hour

type Match struct {
	ID             string      `db:"id"`
	HelpRequestID  string      `db:"help_request_id"`
	OrganisationID string      `db:"organisation_id"`
	Status         MatchStatus `db:"status"`
	Priority       int         `db:"priority"`
	ExpiresAt      time.Time   `db:"expires_at"`
	RespondedAt    *time.Time  `db:"responded_at"`
	ResponseNote   *string     `db:"response_note"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// Overdue reports whether a still-pending match has passed its response
// deadline. Terminal matches are never overdue.
func (m *Match) Overdue(now time.Time) bool {
	return m.Status == MatchStatusPending && now.After(m.ExpiresAt)
}

// EffectiveStatus is the status a reader should act on: overdue pending
// matches read as expired even before a sweep has persisted the flip.
func (m *Match) EffectiveStatus(now time.Time) MatchStatus {
	if m.Overdue(now) {
		return MatchStatusExpired
	}
	return m.Status
}
