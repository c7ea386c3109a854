package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/realtime/internal/core/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by
// PostgreSQL, modeled on the teacher's pgNotificationRepository.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, producer_notification_id, created_by, created_at, invalidate_at,
			 user_ids, content_type, content, status, seen, delivered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		n.ID[:], n.ProducerNotificationID, n.CreatedBy, n.CreatedAt, n.InvalidateAt,
		uuidSlice(n.UserIDs), n.ContentType, n.Content, n.Status, n.Seen, n.DeliveredAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "uq_producer_notification") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, producer_notification_id, created_by, created_at, invalidate_at,
		       user_ids, content_type, content, status, seen, delivered_at
		FROM notifications WHERE id = $1`, id[:])

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) FetchUndelivered(ctx context.Context, principal uuid.UUID, now time.Time) ([]*domain.Notification, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `
		WITH candidates AS (
			SELECT id FROM notifications
			WHERE status <> 'deleted'
			  AND (invalidate_at IS NULL OR invalidate_at > $2)
			  AND (cardinality(user_ids) = 0 OR $1 = ANY(user_ids))
		),
		inserted AS (
			INSERT INTO deliveries (notification_id, user_id, delivered_at, seen)
			SELECT id, $1, $2, false FROM candidates
			ON CONFLICT (notification_id, user_id) DO NOTHING
			RETURNING notification_id
		)
		SELECT n.id, n.producer_notification_id, n.created_by, n.created_at, n.invalidate_at,
		       n.user_ids, n.content_type, n.content, n.status, n.seen, n.delivered_at
		FROM notifications n
		JOIN inserted i ON i.notification_id = n.id`,
		principal, now)
	if err != nil {
		return nil, fmt.Errorf("fetch undelivered: %w", err)
	}

	notifications, err := scanNotifications(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	ids := make([][]byte, len(notifications))
	for i, n := range notifications {
		ids[i] = n.ID[:]
		n.Status = domain.StatusDelivered
		n.Seen = false
		n.DeliveredAt = &now
	}

	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE notifications SET status = 'delivered', delivered_at = $2
			WHERE id = ANY($1) AND status = 'undelivered'`, ids, now); err != nil {
			return nil, fmt.Errorf("advance aggregate status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit fetch undelivered: %w", err)
	}

	return notifications, nil
}

func (r *pgNotificationRepository) InvalidateAt(ctx context.Context, principal uuid.UUID, id domain.NotificationID, newAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET invalidate_at = $1
		WHERE id = $2 AND created_by = $3`, newAt, id[:], principal)
	if err != nil {
		return fmt.Errorf("invalidate_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		n, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if n.CreatedBy != principal {
			return domain.ErrForbidden
		}
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) FetchDelivered(ctx context.Context, principal uuid.UUID, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	now := time.Now().UTC()
	where := `n.status <> 'deleted' AND (n.invalidate_at IS NULL OR n.invalidate_at > $2)`
	args := []any{principal, now}
	if filter.Seen != nil {
		args = append(args, *filter.Seen)
		where += fmt.Sprintf(" AND d.seen = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications n JOIN deliveries d ON d.notification_id = n.id AND d.user_id = $1 WHERE " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count delivered: %w", err)
	}

	offset := (filter.PageIdx - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	limitArg := fmt.Sprintf("$%d", len(args)-1)
	offsetArg := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT n.id, n.producer_notification_id, n.created_by, n.created_at, n.invalidate_at,
		       n.user_ids, n.content_type, n.content, n.status, d.seen, d.delivered_at
		FROM notifications n
		JOIN deliveries d ON d.notification_id = n.id AND d.user_id = $1
		WHERE %s
		ORDER BY d.delivered_at DESC
		LIMIT %s OFFSET %s`, where, limitArg, offsetArg)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch delivered: %w", err)
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	return notifications, total, err
}

func (r *pgNotificationRepository) GetDelivered(ctx context.Context, principal uuid.UUID, id domain.NotificationID) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT n.id, n.producer_notification_id, n.created_by, n.created_at, n.invalidate_at,
		       n.user_ids, n.content_type, n.content, n.status, d.seen, d.delivered_at
		FROM notifications n
		JOIN deliveries d ON d.notification_id = n.id AND d.user_id = $1
		WHERE n.id = $2 AND n.status <> 'deleted'
		  AND (n.invalidate_at IS NULL OR n.invalidate_at > now())`, principal, id[:])

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) SetSeen(ctx context.Context, principal uuid.UUID, id domain.NotificationID, seen bool) (*domain.Notification, error) {
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == domain.StatusDeleted {
		return nil, domain.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE deliveries SET seen = $1 WHERE notification_id = $2 AND user_id = $3`,
		seen, id[:], principal)
	if err != nil {
		return nil, fmt.Errorf("set seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetDelivered(ctx, principal, id)
}

func (r *pgNotificationRepository) Delete(ctx context.Context, principal uuid.UUID, id domain.NotificationID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM deliveries WHERE notification_id = $1 AND user_id = $2)`,
		id[:], principal).Scan(&exists); err != nil {
		return fmt.Errorf("check delivery record: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status = 'deleted', content = NULL, content_type = ''
		WHERE id = $1 AND status <> 'deleted'`, id[:])
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already deleted by a concurrent caller; idempotent no-op.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgNotificationRepository) ConfirmationIngest(ctx context.Context, id domain.NotificationID, userID uuid.UUID, timestamp time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO deliveries (notification_id, user_id, delivered_at, seen)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (notification_id, user_id) DO UPDATE
			SET delivered_at = EXCLUDED.delivered_at
			WHERE deliveries.delivered_at < EXCLUDED.delivered_at`,
		id[:], userID, timestamp)
	if err != nil {
		return fmt.Errorf("upsert delivery: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE notifications SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'undelivered'`, id[:], timestamp); err != nil {
		return fmt.Errorf("advance aggregate status: %w", err)
	}

	return tx.Commit(ctx)
}

// ---- helpers ----

func uuidSlice(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var idBytes []byte
	err := row.Scan(
		&idBytes, &n.ProducerNotificationID, &n.CreatedBy, &n.CreatedAt, &n.InvalidateAt,
		&n.UserIDs, &n.ContentType, &n.Content, &n.Status, &n.Seen, &n.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	copy(n.ID[:], idBytes)
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
