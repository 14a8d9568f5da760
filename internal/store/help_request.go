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

const helpRequestTableName = "schuldhulp.help_requests"

var helpRequestColumns = utils.StructTagValues(types.HelpRequest{})

type HelpRequestRepository struct {
	pool *pgxpool.Pool
}

func NewHelpRequestRepository(pool *pgxpool.Pool) *HelpRequestRepository {
	return &HelpRequestRepository{pool: pool}
}

func (r *HelpRequestRepository) HelpRequest(ctx context.Context, helpRequestID string) (*types.HelpRequest, error) {
	query, args, err := psql().
		Select(helpRequestColumns...).
		From(helpRequestTableName).
		Where(sq.Eq{"id": helpRequestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate help request query: %w", err)
	}

	var helpRequest types.HelpRequest
	err = pgxscan.Get(ctx, r.pool, &helpRequest, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrHelpRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch help request: %w", err)
	}

	return &helpRequest, nil
}

func (r *HelpRequestRepository) Create(ctx context.Context, helpRequest *types.HelpRequest) error {
	now := time.Now()
	helpRequest.ID = utils.NanoID()
	helpRequest.Status = types.HelpRequestStatusPending
	helpRequest.CreatedAt = now
	helpRequest.UpdatedAt = now

	helpRequestMap := utils.StructToMap(helpRequest)

	query, args, err := psql().Insert(helpRequestTableName).SetMap(helpRequestMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert help request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create help request")
}

// SetStatus moves a help request through its state machine. The previous
// status sits in the WHERE clause, so a concurrent writer that got there
// first makes this a no-op and the transition is re-checked.
func (r *HelpRequestRepository) SetStatus(ctx context.Context, helpRequestID string, to types.HelpRequestStatus) error {
	helpRequest, err := r.HelpRequest(ctx, helpRequestID)
	if err != nil {
		return err
	}

	if helpRequest.Status == to {
		return nil
	}

	if !helpRequest.Status.CanTransition(to) {
		return fmt.Errorf("help request %s: %s -> %s: %w", helpRequestID, helpRequest.Status, to, types.ErrInvalidTransition)
	}

	query, args, err := psql().
		Update(helpRequestTableName).
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": helpRequestID, "status": helpRequest.Status}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate set status query for help request %s: %w", helpRequestID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set help request status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("help request %s changed concurrently: %w", helpRequestID, types.ErrInvalidTransition)
	}

	return nil
}
