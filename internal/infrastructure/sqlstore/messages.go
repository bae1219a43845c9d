package sqlstore

import (
	"context"
	"fmt"

	"github.com/lostfound-api/internal/domain"
)

const messageColumns = `id, sender_id, receiver_id, item_id, content, is_read, created_at, updated_at`

// MessageStore persists direct messages between users.
type MessageStore struct {
	db *DB
}

func NewMessageStore(db *DB) *MessageStore { return &MessageStore{db: db} }

func (s *MessageStore) Create(ctx context.Context, m *domain.Message) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			m.MessageID, m.SenderID, m.ReceiverID, m.ItemID, m.Content, m.Read, m.CreatedAt, m.UpdatedAt)
		return err
	})
}

func (s *MessageStore) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	var m domain.Message
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &m, s.db.rebind(`SELECT `+messageColumns+` FROM messages WHERE id = ?`), messageID)
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	return &m, nil
}

// Thread returns the messages exchanged by two users, oldest first. An empty
// itemID spans every item.
func (s *MessageStore) Thread(ctx context.Context, userA, userB, itemID string) ([]domain.Message, error) {
	var w where
	w.add("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))", userA, userB, userB, userA)
	if itemID != "" {
		w.add("item_id = ?", itemID)
	}
	var out []domain.Message
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.SelectContext(ctx, &out, s.db.rebind(
			`SELECT `+messageColumns+` FROM messages`+w.String()+` ORDER BY created_at, id`), w.args...)
	})
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return out, nil
}

// ListForUser returns every message the user sent or received, newest first.
func (s *MessageStore) ListForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	var out []domain.Message
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.SelectContext(ctx, &out, s.db.rebind(
			`SELECT `+messageColumns+` FROM messages WHERE sender_id = ? OR receiver_id = ? ORDER BY created_at DESC, id DESC`),
			userID, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, messageID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(`UPDATE messages SET is_read = ? WHERE id = ?`), true, messageID)
		if err != nil {
			return err
		}
		return affected(res, "message")
	})
}

// MarkThreadRead marks what senderID sent to receiverID as read.
func (s *MessageStore) MarkThreadRead(ctx context.Context, receiverID, senderID, itemID string) error {
	var w where
	w.add("receiver_id = ?", receiverID)
	w.add("sender_id = ?", senderID)
	w.add("is_read = ?", false)
	if itemID != "" {
		w.add("item_id = ?", itemID)
	}
	args := append([]interface{}{true}, w.args...)
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(`UPDATE messages SET is_read = ?`+w.String()), args...)
		return err
	})
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &n, s.db.rebind(
			`SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = ?`), userID, false)
	})
	return n, err
}
