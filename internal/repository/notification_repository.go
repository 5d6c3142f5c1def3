package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// NotificationRepository encapsulates the append-only notification log.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, actorID int64) error
	ExistsRecent(ctx context.Context, orderID int64, notifType domain.NotificationType, since time.Time) (bool, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, order_id, type, title, message, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, sent_at`
	return r.pool.QueryRow(ctx, query,
		notification.ActorID,
		notification.OrderID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Priority,
	).Scan(&notification.ID, &notification.SentAt)
}

func (r *notificationRepository) ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_id, order_id, type, title, message, priority, sent_at, read_at
        FROM notifications WHERE user_id=$1 ORDER BY sent_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.ActorID,
			&n.OrderID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Priority,
			&n.SentAt,
			&n.ReadAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkRead stamps read_at on the recipient's notification. Already-read
// rows are left untouched; a foreign id maps to pgx.ErrNoRows.
func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, actorID int64) error {
	const query = `
        UPDATE notifications SET read_at=NOW()
        WHERE id=$1 AND user_id=$2 AND read_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, notificationID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExistsRecent reports whether the same kind of notification was already
// logged for the order after the given instant. Used to dedup sweep warnings.
func (r *notificationRepository) ExistsRecent(ctx context.Context, orderID int64, notifType domain.NotificationType, since time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notifications
            WHERE order_id=$1 AND type=$2 AND sent_at >= $3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, orderID, notifType, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
