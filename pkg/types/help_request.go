package types

import "time"

type HelpRequestStatus string

const (
	HelpRequestStatusPending    HelpRequestStatus = "pending"
	HelpRequestStatusMatching   HelpRequestStatus = "matching"
	HelpRequestStatusMatched    HelpRequestStatus = "matched"
	HelpRequestStatusAccepted   HelpRequestStatus = "accepted"
	HelpRequestStatusInProgress HelpRequestStatus = "in_progress"
	HelpRequestStatusCompleted  HelpRequestStatus = "completed"
	HelpRequestStatusCancelled  HelpRequestStatus = "cancelled"
)

// helpRequestTransitions is the full transition table. Note pending is
// reachable again from matching and matched: that is the "matches exhausted,
// needs re-matching" edge.
var helpRequestTransitions = map[HelpRequestStatus][]HelpRequestStatus{
	HelpRequestStatusPending:    {HelpRequestStatusMatching, HelpRequestStatusMatched, HelpRequestStatusCancelled},
	HelpRequestStatusMatching:   {HelpRequestStatusMatched, HelpRequestStatusPending, HelpRequestStatusCancelled},
	HelpRequestStatusMatched:    {HelpRequestStatusAccepted, HelpRequestStatusPending, HelpRequestStatusCancelled},
	HelpRequestStatusAccepted:   {HelpRequestStatusInProgress, HelpRequestStatusCompleted, HelpRequestStatusCancelled},
	HelpRequestStatusInProgress: {HelpRequestStatusCompleted, HelpRequestStatusCancelled},
	HelpRequestStatusCompleted:  {},
	HelpRequestStatusCancelled:  {},
}

func (s HelpRequestStatus) CanTransition(to HelpRequestStatus) bool {
	for _, allowed := range helpRequestTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s HelpRequestStatus) Terminal() bool {
	return len(helpRequestTransitions[s]) == 0
}

type ContactPreference string

const (
	ContactPreferenceEmail ContactPreference = "email"
	ContactPreferenceSMS   ContactPreference = "sms"
	ContactPreferenceApp   ContactPreference = "app"
)

func (p ContactPreference) Valid() bool {
	switch p {
	case ContactPreferenceEmail, ContactPreferenceSMS, ContactPreferenceApp:
		return true
	}
	return false
}

type HelpRequest struct {
	ID                string            `db:"id"`
	Name              *string           `db:"name"`
	Email             *string           `db:"email"`
	Phone             *string           `db:"phone"`
	ContactPreference ContactPreference `db:"contact_preference"`
	Gemeente          string            `db:"gemeente"`
	Postcode          string            `db:"postcode"`
	Situation         *string           `db:"situation"`
	Status            HelpRequestStatus `db:"status"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}
