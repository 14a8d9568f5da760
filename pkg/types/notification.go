package types

import "time"

type NotificationKind string

const (
	NotificationMatchFound        NotificationKind = "match_found"
	NotificationNewRequest        NotificationKind = "new_request"
	NotificationAcceptedForOrg    NotificationKind = "accepted_for_organisation"
	NotificationAcceptedForSeeker NotificationKind = "accepted_for_seeker"
)

// Notification is an audit row recording one outbound email attempt.
type Notification struct {
	ID             string           `db:"id"`
	Kind           NotificationKind `db:"kind"`
	Recipient      string           `db:"recipient"`
	HelpRequestID  *string          `db:"help_request_id"`
	OrganisationID *string          `db:"organisation_id"`
	Subject        string           `db:"subject"`
	SendError      *string          `db:"send_error"`
	SentAt         time.Time        `db:"sent_at"`
}
