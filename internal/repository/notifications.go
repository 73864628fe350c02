package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"projectpulse.io/pulse/internal/domain"
)

const notificationColumns = `id, type, project_id, project_name, message, extension_reason,
	read, action_required, action_taken, user_id, created_at`

// InsertNotifications stores a batch in one transaction.
func (s *Store) InsertNotifications(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, n := range ns {
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertNotification(ctx context.Context, q sqlx.ExtContext, n domain.Notification) error {
	_, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, string(n.Type), n.ProjectID, n.ProjectName, n.Message, n.ExtensionReason,
		n.Read, n.ActionRequired, n.ActionTaken, n.UserID, n.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("notification %s: %w", n.ID, ErrConflict)
		}
		return fmt.Errorf("inserting notification %s: %w", n.ID, err)
	}
	return nil
}

// ListNotifications returns notifications newest first. Resolved extension
// requests are excluded unless f.IncludeResolved is set.
func (s *Store) ListNotifications(ctx context.Context, f NotificationFilter) ([]domain.Notification, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.UnreadOnly {
		conds = append(conds, "read = ?")
		args = append(args, false)
	}
	if !f.IncludeResolved {
		conds = append(conds, "action_taken = ''")
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, max(f.Offset, 0))
	}

	out := []domain.Notification{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// GetNotification loads one notification, resolved or not.
func (s *Store) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	var n domain.Notification
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`), id)
	if err != nil {
		return domain.Notification{}, notFound("notification", id, err)
	}
	return n, nil
}

// CountUnread counts active unread notifications for userID.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND read = ? AND action_taken = ''`), userID, false)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for %s: %w", userID, err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return s.SetNotificationRead(ctx, id, true)
}

// SetNotificationRead sets the read flag of one notification.
func (s *Store) SetNotificationRead(ctx context.Context, id string, read bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE notifications SET read = ? WHERE id = ?`), read, id)
	if err != nil {
		return fmt.Errorf("marking notification %s read=%t: %w", id, read, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of userID read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE notifications SET read = ? WHERE user_id = ? AND read = ?`), true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("marking notifications of %s read: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteNotification removes one notification.
func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM notifications WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// ResolveExtension records action on an open extension request and stores
// the response atomically. A request that is already resolved returns
// ErrConflict.
func (s *Store) ResolveExtension(ctx context.Context, requestID string, action domain.ExtensionAction, response domain.Notification) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE notifications
			SET action_taken = ?, read = ?, action_required = ?
			WHERE id = ? AND type = ? AND action_taken = ''`),
			string(action), true, false, requestID, string(domain.NotifyExtensionRequest),
		)
		if err != nil {
			return fmt.Errorf("resolving extension request %s: %w", requestID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("extension request %s already resolved: %w", requestID, ErrConflict)
		}
		return insertNotification(ctx, tx, response)
	})
}

// DeleteReadNotificationsBefore removes read notifications created before cutoff.
func (s *Store) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM notifications WHERE created_at < ? AND read = ?`), cutoff.UTC(), true)
	if err != nil {
		return 0, fmt.Errorf("deleting notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
