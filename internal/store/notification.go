package store

import (
	"context"
	"fmt"
	"time"

	"schuldhulp/internal/utils"
	"schuldhulp/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationTableName = "schuldhulp.notifications"

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Record(ctx context.Context, notification *types.Notification) error {
	if notification.ID == "" {
		notification.ID = utils.NanoID()
	}
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now()
	}

	notificationMap := utils.StructToMap(notification)

	query, args, err := psql().Insert(notificationTableName).SetMap(notificationMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record notification")
}
