package sqlstore

import (
	"context"
	"fmt"

	"github.com/lostfound-api/internal/domain"
)

const notificationColumns = `id, user_id, item_id, related_id, message, notification_type, is_read, created_at`

// NotificationStore persists in-app notifications.
type NotificationStore struct {
	db *DB
}

func NewNotificationStore(db *DB) *NotificationStore { return &NotificationStore{db: db} }

func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			n.NotificationID, n.UserID, n.ItemID, n.RelatedID, n.Message, n.Type, n.Read, n.CreatedAt)
		return err
	})
}

func (s *NotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var n domain.Notification
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &n, s.db.rebind(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`), notificationID)
	})
	if err != nil {
		return nil, fmt.Errorf("get notification %s: %w", notificationID, err)
	}
	return &n, nil
}

func (s *NotificationStore) List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error) {
	var w where
	w.add("user_id = ?", f.UserID)
	if f.Read != nil {
		w.add("is_read = ?", *f.Read)
	}
	var (
		out   []domain.Notification
		total int
	)
	err := s.db.read(ctx, func(ctx context.Context) error {
		if err := s.db.db.GetContext(ctx, &total, s.db.rebind(`SELECT COUNT(*) FROM notifications`+w.String()), w.args...); err != nil {
			return err
		}
		args := append(append([]interface{}{}, w.args...), f.PerPage, f.Offset())
		return s.db.db.SelectContext(ctx, &out, s.db.rebind(
			`SELECT `+notificationColumns+` FROM notifications`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &n, s.db.rebind(
			`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`), userID, false)
	})
	return n, err
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(`UPDATE notifications SET is_read = ? WHERE id = ?`), true, notificationID)
		if err != nil {
			return err
		}
		return affected(res, "notification")
	})
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`), true, userID, false)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

func (s *NotificationStore) Delete(ctx context.Context, notificationID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(`DELETE FROM notifications WHERE id = ?`), notificationID)
		if err != nil {
			return err
		}
		return affected(res, "notification")
	})
}
