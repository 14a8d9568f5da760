package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"schuldhulp/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	// MaxMatches caps the shortlist a help request is matched against.
	MaxMatches = 4

	// regionalThreshold: below this many local candidates the regional tier
	// is consulted as well.
	regionalThreshold = 3

	// fallbackFetchLimit bounds the nationwide tier-3 fetch.
	fallbackFetchLimit = 10
)

// OrganisationDirectory is the read-only slice of the store the matcher
// needs. Each method maps to one candidate tier.
type OrganisationDirectory interface {
	EligibleByGemeente(ctx context.Context, gemeente string) ([]*types.Organisation, error)
	EligibleByRegion(ctx context.Context, postcodePrefix, excludeGemeente string) ([]*types.Organisation, error)
	EligibleAnywhere(ctx context.Context, limit uint64) ([]*types.Organisation, error)
}

// Matcher selects and ranks candidate organisations for a help request's
// location. It reads the directory and nothing else.
type Matcher struct {
	directory OrganisationDirectory
	logger    *logrus.Logger
}

func NewMatcher(directory OrganisationDirectory, logger *logrus.Logger) *Matcher {
	return &Matcher{directory: directory, logger: logger}
}

// FindMatches returns up to MaxMatches eligible organisations, best first.
// An empty result is not an error: it means no organisation can take the
// request right now.
//
// Candidates are assembled in tiers. Tier 1 is the request's own gemeente; a
// failure there is fatal. Tier 2 (same postcode region, other gemeenten) is
// appended when tier 1 comes up short, and tier 3 (nationwide) only runs
// when tiers 1+2 produced nothing at all. Tier 2 and 3 query failures
// degrade to zero extra candidates.
func (m *Matcher) FindMatches(ctx context.Context, gemeente, postcode string) ([]*types.Organisation, error) {
	gemeente = strings.TrimSpace(gemeente)
	region := types.PostcodeRegion(postcode)
	if gemeente == "" || region == "" {
		return nil, types.ErrInvalidLocation
	}

	candidates, err := m.directory.EligibleByGemeente(ctx, gemeente)
	if err != nil {
		return nil, fmt.Errorf("fetch local candidates for %s: %w", gemeente, err)
	}

	if len(candidates) < regionalThreshold {
		regional, err := m.directory.EligibleByRegion(ctx, region, gemeente)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"gemeente": gemeente,
				"region":   region,
			}).Warn("regional candidate query failed, continuing with local candidates")
		} else {
			candidates = append(candidates, regional...)
		}
	}

	if len(candidates) == 0 {
		fallback, err := m.directory.EligibleAnywhere(ctx, fallbackFetchLimit)
		if err != nil {
			m.logger.WithError(err).WithField("gemeente", gemeente).Warn("nationwide fallback query failed")
		} else {
			for _, organisation := range fallback {
				if organisation.HasCapacity() {
					candidates = append(candidates, organisation)
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return Score(candidates[i]) > Score(candidates[j])
	})

	if len(candidates) > MaxMatches {
		candidates = candidates[:MaxMatches]
	}

	return candidates, nil
}

// Score rates one candidate. Shorter wait is better (capped), free capacity
// is better, NVVK membership and verification add fixed bonuses. The
// verification bonus is redundant with the eligibility filters today but
// keeps verified organisations ahead if those filters are ever relaxed.
func Score(organisation *types.Organisation) float64 {
	score := 100.0

	waitPenalty := float64(organisation.EstimatedWaitDays * 2)
	if waitPenalty > 30 {
		waitPenalty = 30
	}
	score -= waitPenalty

	score += organisation.FreeCapacityFraction() * 20

	if organisation.NVVKMember {
		score += 10
	}

	if organisation.IsVerified {
		score += 5
	}

	return score
}
