package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schuldhulp/pkg/types"

	"github.com/sirupsen/logrus"
)

// MatchStore is the write-side slice of the store the lifecycle manager
// drives. Respond must be atomic with its pending-status guard: of two
// concurrent calls exactly one may succeed.
type MatchStore interface {
	CreateBatch(ctx context.Context, matches []*types.Match) error
	Match(ctx context.Context, helpRequestID, organisationID string) (*types.Match, error)
	Respond(ctx context.Context, helpRequestID, organisationID string, to types.MatchStatus, respondedAt time.Time, note *string) error
	CountByStatus(ctx context.Context, helpRequestID string, status types.MatchStatus) (int, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]string, error)
}

type HelpRequestStore interface {
	SetStatus(ctx context.Context, helpRequestID string, to types.HelpRequestStatus) error
}

// Lifecycle materializes matcher output into match records and applies the
// state transitions as organisations respond or deadlines pass.
type Lifecycle struct {
	matches      MatchStore
	helpRequests HelpRequestStore
	logger       *logrus.Logger

	now func() time.Time
}

func NewLifecycle(matches MatchStore, helpRequests HelpRequestStore, logger *logrus.Logger) *Lifecycle {
	return &Lifecycle{
		matches:      matches,
		helpRequests: helpRequests,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateMatches persists one pending match per organisation, priority 1..n
// in the given (best-first) order, each with a 48-hour response window. The
// batch is all-or-nothing. Updating the help request status and dispatching
// notifications belong to the caller.
func (l *Lifecycle) CreateMatches(ctx context.Context, helpRequestID string, organisations []*types.Organisation) (*MatchesCreated, error) {
	if helpRequestID == "" {
		return nil, fmt.Errorf("create matches: %w", types.ErrHelpRequestNotFound)
	}

	if len(organisations) == 0 {
		return &MatchesCreated{HelpRequestID: helpRequestID}, nil
	}

	now := l.now()
	expiresAt := now.Add(types.MatchResponseWindow)

	matches := make([]*types.Match, 0, len(organisations))
	for i, organisation := range organisations {
		matches = append(matches, &types.Match{
			HelpRequestID:  helpRequestID,
			OrganisationID: organisation.ID,
			Status:         types.MatchStatusPending,
			Priority:       i + 1,
			ExpiresAt:      expiresAt,
		})
	}

	if err := l.matches.CreateBatch(ctx, matches); err != nil {
		return nil, fmt.Errorf("create matches for help request %s: %w", helpRequestID, err)
	}

	return &MatchesCreated{HelpRequestID: helpRequestID, Matches: matches}, nil
}

// Respond applies an organisation's accept or reject decision. It fails with
// types.ErrMatchNotFound when no such pairing exists and
// types.ErrAlreadyResponded when the match already left pending.
func (l *Lifecycle) Respond(ctx context.Context, helpRequestID, organisationID string, decision types.MatchDecision, note *string) ([]Event, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("decision %q: %w", decision, types.ErrInvalidTransition)
	}

	respondedAt := l.now()

	err := l.matches.Respond(ctx, helpRequestID, organisationID, decision.Status(), respondedAt, note)
	if err != nil {
		return nil, err
	}

	if decision == types.MatchDecisionAccept {
		if err := l.helpRequests.SetStatus(ctx, helpRequestID, types.HelpRequestStatusAccepted); err != nil {
			return nil, fmt.Errorf("mark help request %s accepted: %w", helpRequestID, err)
		}

		return []Event{MatchAccepted{
			HelpRequestID:  helpRequestID,
			OrganisationID: organisationID,
			Note:           note,
		}}, nil
	}

	events := []Event{MatchRejected{
		HelpRequestID:  helpRequestID,
		OrganisationID: organisationID,
		Note:           note,
	}}

	reverted, err := l.rematchCascade(ctx, helpRequestID)
	if err != nil {
		return nil, err
	}
	if reverted {
		events = append(events, HelpRequestReverted{HelpRequestID: helpRequestID})
	}

	return events, nil
}

// ExpireOverdue flips every overdue pending match to expired and runs the
// re-match cascade for each affected help request. Intended to be invoked
// periodically; reads use Match.EffectiveStatus in the meantime.
func (l *Lifecycle) ExpireOverdue(ctx context.Context) ([]Event, error) {
	helpRequestIDs, err := l.matches.ExpireOverdue(ctx, l.now())
	if err != nil {
		return nil, fmt.Errorf("expire overdue matches: %w", err)
	}

	events := make([]Event, 0, len(helpRequestIDs))
	for _, helpRequestID := range helpRequestIDs {
		events = append(events, MatchesExpired{HelpRequestID: helpRequestID})

		reverted, err := l.rematchCascade(ctx, helpRequestID)
		if err != nil {
			l.logger.WithError(err).WithField("help_request_id", helpRequestID).Error("expiry cascade failed")
			continue
		}
		if reverted {
			events = append(events, HelpRequestReverted{HelpRequestID: helpRequestID})
		}
	}

	return events, nil
}

// rematchCascade reverts a help request to pending once nothing is pending
// anymore and nothing was accepted. An accepted sibling keeps the request in
// its accepted state even as leftover matches are rejected or expire.
func (l *Lifecycle) rematchCascade(ctx context.Context, helpRequestID string) (bool, error) {
	pending, err := l.matches.CountByStatus(ctx, helpRequestID, types.MatchStatusPending)
	if err != nil {
		return false, fmt.Errorf("count pending matches for help request %s: %w", helpRequestID, err)
	}
	if pending > 0 {
		return false, nil
	}

	accepted, err := l.matches.CountByStatus(ctx, helpRequestID, types.MatchStatusAccepted)
	if err != nil {
		return false, fmt.Errorf("count accepted matches for help request %s: %w", helpRequestID, err)
	}
	if accepted > 0 {
		return false, nil
	}

	err = l.helpRequests.SetStatus(ctx, helpRequestID, types.HelpRequestStatusPending)
	if err != nil {
		// A cancelled or completed request has no pending edge left; that
		// is fine, the leftover match response simply has no further effect.
		if errors.Is(err, types.ErrInvalidTransition) {
			l.logger.WithField("help_request_id", helpRequestID).Debug("skipping revert, help request is terminal")
			return false, nil
		}
		return false, fmt.Errorf("revert help request %s to pending: %w", helpRequestID, err)
	}

	return true, nil
}
