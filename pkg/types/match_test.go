package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatusTransitions(t *testing.T) {
	cases := []struct {
		from    MatchStatus
		to      MatchStatus
		allowed bool
	}{
		{MatchStatusPending, MatchStatusAccepted, true},
		{MatchStatusPending, MatchStatusRejected, true},
		{MatchStatusPending, MatchStatusExpired, true},
		{MatchStatusPending, MatchStatusPending, false},
		{MatchStatusAccepted, MatchStatusRejected, false},
		{MatchStatusAccepted, MatchStatusPending, false},
		{MatchStatusRejected, MatchStatusAccepted, false},
		{MatchStatusExpired, MatchStatusAccepted, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMatchStatusTerminal(t *testing.T) {
	assert.False(t, MatchStatusPending.Terminal())
	assert.True(t, MatchStatusAccepted.Terminal())
	assert.True(t, MatchStatusRejected.Terminal())
	assert.True(t, MatchStatusExpired.Terminal())
}

func TestMatchEffectiveStatus(t *testing.T) {
	now := time.Now()

	pending := &Match{Status: MatchStatusPending, ExpiresAt: now.Add(time.Hour)}
	assert.Equal(t, MatchStatusPending, pending.EffectiveStatus(now))
	assert.False(t, pending.Overdue(now))

	overdue := &Match{Status: MatchStatusPending, ExpiresAt: now.Add(-time.Minute)}
	assert.Equal(t, MatchStatusExpired, overdue.EffectiveStatus(now))
	assert.True(t, overdue.Overdue(now))

	// terminal statuses never read as expired
	accepted := &Match{Status: MatchStatusAccepted, ExpiresAt: now.Add(-time.Hour)}
	assert.Equal(t, MatchStatusAccepted, accepted.EffectiveStatus(now))
	assert.False(t, accepted.Overdue(now))
}

func TestMatchDecision(t *testing.T) {
	assert.True(t, MatchDecisionAccept.Valid())
	assert.True(t, MatchDecisionReject.Valid())
	assert.False(t, MatchDecision("maybe").Valid())

	assert.Equal(t, MatchStatusAccepted, MatchDecisionAccept.Status())
	assert.Equal(t, MatchStatusRejected, MatchDecisionReject.Status())
}

func TestHelpRequestStatusTransitions(t *testing.T) {
	assert.True(t, HelpRequestStatusPending.CanTransition(HelpRequestStatusMatched))
	assert.True(t, HelpRequestStatusMatched.CanTransition(HelpRequestStatusAccepted))
	assert.True(t, HelpRequestStatusMatched.CanTransition(HelpRequestStatusPending))
	assert.True(t, HelpRequestStatusAccepted.CanTransition(HelpRequestStatusInProgress))
	assert.True(t, HelpRequestStatusInProgress.CanTransition(HelpRequestStatusCompleted))

	assert.False(t, HelpRequestStatusAccepted.CanTransition(HelpRequestStatusPending))
	assert.False(t, HelpRequestStatusCompleted.CanTransition(HelpRequestStatusCancelled))
	assert.False(t, HelpRequestStatusCancelled.CanTransition(HelpRequestStatusPending))

	// cancellable from any non-terminal state
	for _, from := range []HelpRequestStatus{
		HelpRequestStatusPending,
		HelpRequestStatusMatching,
		HelpRequestStatusMatched,
		HelpRequestStatusAccepted,
		HelpRequestStatusInProgress,
	} {
		assert.Truef(t, from.CanTransition(HelpRequestStatusCancelled), "%s -> cancelled", from)
	}

	assert.True(t, HelpRequestStatusCompleted.Terminal())
	assert.True(t, HelpRequestStatusCancelled.Terminal())
	assert.False(t, HelpRequestStatusMatched.Terminal())
}

func TestContactPreference(t *testing.T) {
	assert.True(t, ContactPreferenceEmail.Valid())
	assert.True(t, ContactPreferenceSMS.Valid())
	assert.True(t, ContactPreferenceApp.Valid())
	assert.False(t, ContactPreference("fax").Valid())
}
