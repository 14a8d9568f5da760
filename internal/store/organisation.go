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

const organisationTableName = "schuldhulp.organisations"

var organisationColumns = utils.StructTagValues(types.Organisation{})

type OrganisationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganisationRepository(pool *pgxpool.Pool) *OrganisationRepository {
	return &OrganisationRepository{pool: pool}
}

func (r *OrganisationRepository) Organisation(ctx context.Context, organisationID string) (*types.Organisation, error) {
	query, args, err := psql().
		Select(organisationColumns...).
		From(organisationTableName).
		Where(sq.Eq{"id": organisationID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organisation query: %w", err)
	}

	var organisation types.Organisation
	err = pgxscan.Get(ctx, r.pool, &organisation, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOrganisationNotFound
		}
		return nil, fmt.Errorf("failed to fetch organisation: %w", err)
	}

	return &organisation, nil
}

func (r *OrganisationRepository) OrganisationByEmail(ctx context.Context, email string) (*types.Organisation, error) {
	query, args, err := psql().
		Select(organisationColumns...).
		From(organisationTableName).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organisation-by-email query: %w", err)
	}

	var organisation types.Organisation
	err = pgxscan.Get(ctx, r.pool, &organisation, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOrganisationNotFound
		}
		return nil, fmt.Errorf("failed to fetch organisation by email: %w", err)
	}

	return &organisation, nil
}

// EligibleByGemeente is the matcher's tier-1 query: verified, active,
// free capacity, exact gemeente.
func (r *OrganisationRepository) EligibleByGemeente(ctx context.Context, gemeente string) ([]*types.Organisation, error) {
	query, args, err := psql().
		Select(organisationColumns...).
		From(organisationTableName).
		Where(sq.Eq{"gemeente": gemeente, "is_verified": true, "is_active": true}).
		Where(sq.Expr("current_capacity < max_capacity")).
		OrderBy("created_at asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate eligible-by-gemeente query: %w", err)
	}

	organisations := make([]*types.Organisation, 0)
	err = pgxscan.Select(ctx, r.pool, &organisations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible organisations for gemeente: %w", err)
	}

	return organisations, nil
}

// EligibleByRegion is the tier-2 query: same two-character postcode prefix,
// different gemeente, verified, active, free capacity.
func (r *OrganisationRepository) EligibleByRegion(ctx context.Context, postcodePrefix, excludeGemeente string) ([]*types.Organisation, error) {
	query, args, err := psql().
		Select(organisationColumns...).
		From(organisationTableName).
		Where(sq.Eq{"is_verified": true, "is_active": true}).
		Where(sq.Like{"postcode": postcodePrefix + "%"}).
		Where(sq.NotEq{"gemeente": excludeGemeente}).
		Where(sq.Expr("current_capacity < max_capacity")).
		OrderBy("created_at asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate eligible-by-region query: %w", err)
	}

	organisations := make([]*types.Organisation, 0)
	err = pgxscan.Select(ctx, r.pool, &organisations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible organisations for region: %w", err)
	}

	return organisations, nil
}

// EligibleAnywhere is the tier-3 fallback: verified and active regardless of
// location. Capacity is deliberately not filtered here; the matcher applies
// it after the fetch.
func (r *OrganisationRepository) EligibleAnywhere(ctx context.Context, limit uint64) ([]*types.Organisation, error) {
	query, args, err := psql().
		Select(organisationColumns...).
		From(organisationTableName).
		Where(sq.Eq{"is_verified": true, "is_active": true}).
		OrderBy("created_at asc").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate eligible-anywhere query: %w", err)
	}

	organisations := make([]*types.Organisation, 0)
	err = pgxscan.Select(ctx, r.pool, &organisations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fallback organisations: %w", err)
	}

	return organisations, nil
}

func (r *OrganisationRepository) Create(ctx context.Context, organisation *types.Organisation) error {
	now := time.Now()
	if organisation.ID == "" {
		organisation.ID = utils.NanoID()
	}
	organisation.CreatedAt = now
	organisation.UpdatedAt = now

	organisationMap := utils.StructToMap(organisation)

	query, args, err := psql().Insert(organisationTableName).SetMap(organisationMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert organisation query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create organisation")
}

func (r *OrganisationRepository) UpdateSettings(ctx context.Context, organisationID string, maxCapacity, estimatedWaitDays int, isActive bool) error {
	query, args, err := psql().
		Update(organisationTableName).
		Set("max_capacity", maxCapacity).
		Set("estimated_wait_days", estimatedWaitDays).
		Set("is_active", isActive).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": organisationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update settings query for organisation %s: %w", organisationID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update organisation settings: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrOrganisationNotFound
	}

	return nil
}

// IncrementCapacity claims one client slot. The capacity ceiling lives in
// the WHERE clause so two concurrent claims of the last slot cannot both
// succeed.
func (r *OrganisationRepository) IncrementCapacity(ctx context.Context, organisationID string) error {
	query, args, err := psql().
		Update(organisationTableName).
		Set("current_capacity", sq.Expr("current_capacity + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": organisationID}).
		Where(sq.Expr("current_capacity < max_capacity")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate increment capacity query for organisation %s: %w", organisationID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment capacity: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.Organisation(ctx, organisationID); err != nil {
			return err
		}
		return types.ErrNoCapacity
	}

	return nil
}

func (r *OrganisationRepository) DecrementCapacity(ctx context.Context, organisationID string) error {
	query, args, err := psql().
		Update(organisationTableName).
		Set("current_capacity", sq.Expr("current_capacity - 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": organisationID}).
		Where(sq.Expr("current_capacity > 0")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate decrement capacity query for organisation %s: %w", organisationID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to decrement capacity")
}
