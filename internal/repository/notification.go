package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const notificationColumns = `id, recipient_id, org_id, type, category, priority,
	title, message, payload, entity_type, entity_id,
	scheduled_for, delivered_at, delivered_app, delivered_email, delivered_push,
	is_read, read_at, created_at`

// NotificationRepository handles notification data access operations.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists a notification and returns it with id and created_at set.
func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	var result domain.Notification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notifications
		   (recipient_id, org_id, type, category, priority, title, message,
		    payload, entity_type, entity_id, scheduled_for)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+notificationColumns,
		n.RecipientID, n.OrgID, n.Type, n.Category, n.Priority, n.Title, n.Message,
		n.Payload, n.EntityType, n.EntityID, n.ScheduledFor,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create notification", err)
	}
	return &result, nil
}

// FindByID retrieves a notification by id.
func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.GetContext(ctx, &n,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find notification", err)
	}
	return &n, nil
}

// List returns one page of a recipient's notifications, newest first, plus
// the total row count for the filter.
func (r *NotificationRepository) List(ctx context.Context, recipientID int64, filter domain.NotificationFilter, limit, offset int) ([]domain.Notification, int, error) {
	where := []string{"recipient_id = $1"}
	args := []any{recipientID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.UnreadOnly {
		where = append(where, "is_read = FALSE")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM notifications WHERE `+cond, args...); err != nil {
		return nil, 0, wrap("count notifications", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, notificationColumns, cond, len(args)-1, len(args))

	var items []domain.Notification
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, wrap("list notifications", err)
	}
	return items, total, nil
}

// CountUnread counts a recipient's unread notifications. The unread count is
// always derived from rows, never cached.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID)
	if err != nil {
		return 0, wrap("count unread", err)
	}
	return count, nil
}

// MarkRead sets the read state of a single notification. Marking an
// already-read row changes nothing; read_at keeps its first value.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2
		 WHERE id = $1 AND is_read = FALSE`, id, readAt)
	if err != nil {
		return wrap("mark read", err)
	}
	return nil
}

// MarkManyRead marks the given ids read for one recipient. Ids not owned by
// the recipient, unknown, or already read are silently skipped.
func (r *NotificationRepository) MarkManyRead(ctx context.Context, ids []int64, recipientID int64, readAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE notifications SET is_read = TRUE, read_at = ?
		 WHERE id IN (?) AND recipient_id = ? AND is_read = FALSE`,
		readAt, ids, recipientID)
	if err != nil {
		return wrap("mark many read", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return wrap("mark many read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of a recipient read and
// returns the number of rows affected.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64, readAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2
		 WHERE recipient_id = $1 AND is_read = FALSE`, recipientID, readAt)
	if err != nil {
		return 0, wrap("mark all read", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("mark all read", err)
	}
	return affected, nil
}

// RecordDelivery stores the per-channel outcome of a delivery attempt and
// stamps delivered_at.
func (r *NotificationRepository) RecordDelivery(ctx context.Context, id int64, ch domain.Channels, deliveredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		 SET delivered_app = $2, delivered_email = $3, delivered_push = $4, delivered_at = $5
		 WHERE id = $1`, id, ch.App, ch.Email, ch.Push, deliveredAt)
	if err != nil {
		return wrap("record delivery", err)
	}
	return nil
}

// ListDue returns undelivered notifications ready for a delivery attempt:
// scheduled rows whose time has arrived, and unscheduled rows that were
// persisted but never attempted (crash between persist and deliver) once
// they are older than retryCutoff. Oldest first, up to limit rows.
func (r *NotificationRepository) ListDue(ctx context.Context, now, retryCutoff time.Time, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE delivered_at IS NULL
		   AND ((scheduled_for IS NOT NULL AND scheduled_for <= $1)
		     OR (scheduled_for IS NULL AND created_at <= $2))
		 ORDER BY COALESCE(scheduled_for, created_at)
		 LIMIT $3`, now, retryCutoff, limit)
	if err != nil {
		return nil, wrap("list due notifications", err)
	}
	return items, nil
}

// Delete removes a notification owned by the recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return wrap("delete notification", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap("delete notification", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes notifications created before the cutoff. When
// readOnly is true, unread rows survive the sweep.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, readOnly bool) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`
	if readOnly {
		query += ` AND is_read = TRUE`
	}
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, wrap("delete old notifications", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("delete old notifications", err)
	}
	return affected, nil
}
