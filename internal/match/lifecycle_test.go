package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatchStore struct {
	mu      sync.Mutex
	matches map[string]*types.Match

	batchErr error
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: make(map[string]*types.Match)}
}

func matchKey(helpRequestID, organisationID string) string {
	return helpRequestID + "|" + organisationID
}

func (s *fakeMatchStore) CreateBatch(_ context.Context, matches []*types.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batchErr != nil {
		return s.batchErr
	}

	for _, match := range matches {
		if match.ID == "" {
			match.ID = utils.NanoID()
		}
		copied := *match
		s.matches[matchKey(match.HelpRequestID, match.OrganisationID)] = &copied
	}
	return nil
}

func (s *fakeMatchStore) Match(_ context.Context, helpRequestID, organisationID string) (*types.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchKey(helpRequestID, organisationID)]
	if !ok {
		return nil, types.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (s *fakeMatchStore) Respond(_ context.Context, helpRequestID, organisationID string, to types.MatchStatus, respondedAt time.Time, note *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchKey(helpRequestID, organisationID)]
	if !ok {
		return types.ErrMatchNotFound
	}

	if match.Status != types.MatchStatusPending {
		return types.ErrAlreadyResponded
	}

	match.Status = to
	match.RespondedAt = &respondedAt
	match.ResponseNote = note
	return nil
}

func (s *fakeMatchStore) CountByStatus(_ context.Context, helpRequestID string, status types.MatchStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, match := range s.matches {
		if match.HelpRequestID == helpRequestID && match.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *fakeMatchStore) ExpireOverdue(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	affected := make([]string, 0)
	for _, match := range s.matches {
		if match.Status == types.MatchStatusPending && now.After(match.ExpiresAt) {
			match.Status = types.MatchStatusExpired
			if _, ok := seen[match.HelpRequestID]; !ok {
				seen[match.HelpRequestID] = struct{}{}
				affected = append(affected, match.HelpRequestID)
			}
		}
	}
	return affected, nil
}

type fakeHelpRequestStore struct {
	mu       sync.Mutex
	statuses map[string]types.HelpRequestStatus
}

func newFakeHelpRequestStore() *fakeHelpRequestStore {
	return &fakeHelpRequestStore{statuses: make(map[string]types.HelpRequestStatus)}
}

func (s *fakeHelpRequestStore) SetStatus(_ context.Context, helpRequestID string, to types.HelpRequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.statuses[helpRequestID]
	if !ok {
		return types.ErrHelpRequestNotFound
	}
	if current == to {
		return nil
	}
	if !current.CanTransition(to) {
		return types.ErrInvalidTransition
	}
	s.statuses[helpRequestID] = to
	return nil
}

func (s *fakeHelpRequestStore) status(helpRequestID string) types.HelpRequestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[helpRequestID]
}

type lifecycleFixture struct {
	lifecycle    *Lifecycle
	matches      *fakeMatchStore
	helpRequests *fakeHelpRequestStore
	now          time.Time
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		matches:      newFakeMatchStore(),
		helpRequests: newFakeHelpRequestStore(),
		now:          time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	f.lifecycle = NewLifecycle(f.matches, f.helpRequests, testLogger())
	f.lifecycle.now = func() time.Time { return f.now }
	return f
}

func (f *lifecycleFixture) createMatches(t *testing.T, helpRequestID string, organisationIDs ...string) {
	t.Helper()

	organisations := make([]*types.Organisation, 0, len(organisationIDs))
	for _, id := range organisationIDs {
		organisations = append(organisations, &types.Organisation{ID: id})
	}

	f.helpRequests.statuses[helpRequestID] = types.HelpRequestStatusPending

	_, err := f.lifecycle.CreateMatches(context.Background(), helpRequestID, organisations)
	require.NoError(t, err)

	require.NoError(t, f.helpRequests.SetStatus(context.Background(), helpRequestID, types.HelpRequestStatusMatched))
}

func TestCreateMatchesAssignsPrioritiesAndDeadline(t *testing.T) {
	f := newLifecycleFixture()
	f.helpRequests.statuses["hr-1"] = types.HelpRequestStatusPending

	event, err := f.lifecycle.CreateMatches(context.Background(), "hr-1", []*types.Organisation{
		{ID: "org-A"},
		{ID: "org-B"},
	})
	require.NoError(t, err)
	require.Len(t, event.Matches, 2)

	first, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, types.MatchStatusPending, first.Status)
	assert.Equal(t, f.now.Add(48*time.Hour), first.ExpiresAt)

	second, err := f.matches.Match(context.Background(), "hr-1", "org-B")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, types.MatchStatusPending, second.Status)
}

func TestCreateMatchesEmptyShortlist(t *testing.T) {
	f := newLifecycleFixture()

	event, err := f.lifecycle.CreateMatches(context.Background(), "hr-1", nil)
	require.NoError(t, err)
	assert.Empty(t, event.Matches)
	assert.Equal(t, "hr-1", event.HelpRequestID)
}

func TestCreateMatchesBatchFailure(t *testing.T) {
	f := newLifecycleFixture()
	f.matches.batchErr = errors.New("insert failed")

	_, err := f.lifecycle.CreateMatches(context.Background(), "hr-1", []*types.Organisation{{ID: "org-A"}})
	require.Error(t, err)

	// the store contract is all-or-nothing, so nothing may exist afterward
	count, err := f.matches.CountByStatus(context.Background(), "hr-1", types.MatchStatusPending)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRespondAccept(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A", "org-B")

	note := "We can help next week"
	events, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionAccept, &note)
	require.NoError(t, err)
	require.Len(t, events, 1)

	accepted, ok := events[0].(MatchAccepted)
	require.True(t, ok)
	assert.Equal(t, "org-A", accepted.OrganisationID)

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Equal(t, types.MatchStatusAccepted, match.Status)
	require.NotNil(t, match.RespondedAt)
	assert.Equal(t, f.now, *match.RespondedAt)
	require.NotNil(t, match.ResponseNote)
	assert.Equal(t, note, *match.ResponseNote)

	assert.Equal(t, types.HelpRequestStatusAccepted, f.helpRequests.status("hr-1"))

	// the sibling stays pending; acceptance does not cancel it
	sibling, err := f.matches.Match(context.Background(), "hr-1", "org-B")
	require.NoError(t, err)
	assert.Equal(t, types.MatchStatusPending, sibling.Status)
}

func TestRespondTwiceFails(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	_, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionAccept, nil)
	require.NoError(t, err)

	_, err = f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionReject, nil)
	assert.ErrorIs(t, err, types.ErrAlreadyResponded)

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Equal(t, types.MatchStatusAccepted, match.Status, "first response wins")
}

func TestRespondUnknownMatch(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	_, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-X", types.MatchDecisionAccept, nil)
	assert.ErrorIs(t, err, types.ErrMatchNotFound)
}

func TestRespondInvalidDecision(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	_, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecision("maybe"), nil)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestRespondConcurrentSingleWinner(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	var wg sync.WaitGroup
	results := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionAccept, nil)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionReject, nil)
	}()
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, types.ErrAlreadyResponded):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Contains(t, []types.MatchStatus{types.MatchStatusAccepted, types.MatchStatusRejected}, match.Status)
}

func TestRejectNonLastLeavesStatus(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A", "org-B")

	events, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionReject, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, MatchRejected{}, events[0])

	assert.Equal(t, types.HelpRequestStatusMatched, f.helpRequests.status("hr-1"))
}

func TestRejectLastRevertsHelpRequest(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	reason := "no capacity for this case"
	events, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionReject, &reason)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.IsType(t, MatchRejected{}, events[0])
	assert.IsType(t, HelpRequestReverted{}, events[1])

	assert.Equal(t, types.HelpRequestStatusPending, f.helpRequests.status("hr-1"))

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	require.NotNil(t, match.ResponseNote)
	assert.Equal(t, reason, *match.ResponseNote)
}

func TestRejectLastWithAcceptedSiblingDoesNotRevert(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A", "org-B")

	_, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionAccept, nil)
	require.NoError(t, err)

	events, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-B", types.MatchDecisionReject, nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "no revert while an accepted match exists")

	assert.Equal(t, types.HelpRequestStatusAccepted, f.helpRequests.status("hr-1"))
}

func TestExpireOverdue(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	f.now = f.now.Add(49 * time.Hour)

	events, err := f.lifecycle.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.IsType(t, MatchesExpired{}, events[0])
	assert.IsType(t, HelpRequestReverted{}, events[1])

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Equal(t, types.MatchStatusExpired, match.Status)
	assert.Equal(t, types.HelpRequestStatusPending, f.helpRequests.status("hr-1"))
}

func TestExpireOverdueSparesFreshMatches(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	f.now = f.now.Add(time.Hour)

	events, err := f.lifecycle.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)

	match, err := f.matches.Match(context.Background(), "hr-1", "org-A")
	require.NoError(t, err)
	assert.Equal(t, types.MatchStatusPending, match.Status)
}

func TestExpireOverdueWithAcceptedSibling(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A", "org-B")

	_, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionAccept, nil)
	require.NoError(t, err)

	f.now = f.now.Add(49 * time.Hour)

	events, err := f.lifecycle.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1, "expiry noted, but no revert past an acceptance")
	assert.IsType(t, MatchesExpired{}, events[0])

	assert.Equal(t, types.HelpRequestStatusAccepted, f.helpRequests.status("hr-1"))
}

func TestRejectOnCancelledRequestSkipsRevert(t *testing.T) {
	f := newLifecycleFixture()
	f.createMatches(t, "hr-1", "org-A")

	require.NoError(t, f.helpRequests.SetStatus(context.Background(), "hr-1", types.HelpRequestStatusCancelled))

	events, err := f.lifecycle.Respond(context.Background(), "hr-1", "org-A", types.MatchDecisionReject, nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "terminal help request stays terminal")

	assert.Equal(t, types.HelpRequestStatusCancelled, f.helpRequests.status("hr-1"))
}
