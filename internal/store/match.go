package store

import (
	"context"
	"fmt"
	"time"

	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchTableName = "schuldhulp.matches"

var matchColumns = utils.StructTagValues(types.Match{})

type MatchRepository struct {
	pool *pgxpool.Pool
}

func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

// CreateBatch inserts every match in one transaction. A help request either
// gets its full intended match set or none of it.
func (r *MatchRepository) CreateBatch(ctx context.Context, matches []*types.Match) error {
	if len(matches) == 0 {
		return nil
	}

	now := time.Now()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin match batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, match := range matches {
		if match.ID == "" {
			match.ID = utils.NanoID()
		}
		match.CreatedAt = now
		match.UpdatedAt = now

		matchMap := utils.StructToMap(match)

		query, args, err := psql().Insert(matchTableName).SetMap(matchMap).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert match query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert match for organisation %s: %w", match.OrganisationID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit match batch: %w", err)
	}

	return nil
}

func (r *MatchRepository) Match(ctx context.Context, helpRequestID, organisationID string) (*types.Match, error) {
	query, args, err := psql().
		Select(matchColumns...).
		From(matchTableName).
		Where(sq.Eq{"help_request_id": helpRequestID, "organisation_id": organisationID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate match query: %w", err)
	}

	var match types.Match
	err = pgxscan.Get(ctx, r.pool, &match, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}

	return &match, nil
}

func (r *MatchRepository) MatchesForOrganisation(ctx context.Context, organisationID string) ([]*types.Match, error) {
	query, args, err := psql().
		Select(matchColumns...).
		From(matchTableName).
		Where(sq.Eq{"organisation_id": organisationID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate matches-for-organisation query: %w", err)
	}

	matches := make([]*types.Match, 0)
	err = pgxscan.Select(ctx, r.pool, &matches, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches for organisation: %w", err)
	}

	return matches, nil
}

// Respond flips a pending match to a terminal status. The guard lives in the
// WHERE clause: of two racing responders exactly one affects a row, the other
// gets ErrAlreadyResponded (or ErrMatchNotFound if the pair never existed).
func (r *MatchRepository) Respond(ctx context.Context, helpRequestID, organisationID string, to types.MatchStatus, respondedAt time.Time, note *string) error {
	if !types.MatchStatusPending.CanTransition(to) {
		return fmt.Errorf("match response %s: %w", to, types.ErrInvalidTransition)
	}

	query, args, err := psql().
		Update(matchTableName).
		Set("status", to).
		Set("responded_at", respondedAt).
		Set("response_note", note).
		Set("updated_at", respondedAt).
		Where(sq.Eq{
			"help_request_id": helpRequestID,
			"organisation_id": organisationID,
			"status":          types.MatchStatusPending,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate respond query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to respond to match: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.Match(ctx, helpRequestID, organisationID); err != nil {
			return err
		}
		return types.ErrAlreadyResponded
	}

	return nil
}

func (r *MatchRepository) CountByStatus(ctx context.Context, helpRequestID string, status types.MatchStatus) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(matchTableName).
		Where(sq.Eq{"help_request_id": helpRequestID, "status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate count-by-status query: %w", err)
	}

	var count int
	err = pgxscan.Get(ctx, r.pool, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches by status: %w", err)
	}

	return count, nil
}

// ExpireOverdue flips every pending match past its deadline to expired and
// returns the distinct help request ids that were touched, so the caller can
// run the last-pending cascade per request.
func (r *MatchRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]string, error) {
	query, args, err := psql().
		Update(matchTableName).
		Set("status", types.MatchStatusExpired).
		Set("updated_at", now).
		Where(sq.Eq{"status": types.MatchStatusPending}).
		Where(sq.Lt{"expires_at": now}).
		Suffix("RETURNING help_request_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate expire-overdue query: %w", err)
	}

	expired := make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &expired, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue matches: %w", err)
	}

	seen := make(map[string]struct{}, len(expired))
	distinct := make([]string, 0, len(expired))
	for _, helpRequestID := range expired {
		if _, ok := seen[helpRequestID]; ok {
			continue
		}
		seen[helpRequestID] = struct{}{}
		distinct = append(distinct, helpRequestID)
	}

	return distinct, nil
}
