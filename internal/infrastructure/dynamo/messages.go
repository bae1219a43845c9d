package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/lostfound-api/internal/domain"
)

// MessageStore keeps messages keyed by message_id, indexed by sender and by
// receiver so both sides of a conversation are two queries.
type MessageStore struct{ db *DB }

func NewMessageStore(db *DB) *MessageStore { return &MessageStore{db: db} }

func (s *MessageStore) Create(ctx context.Context, m *domain.Message) error {
	if err := putNew(ctx, s.db, s.db.tables.Messages, fieldMessageID, m); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	return getOne[domain.Message](ctx, s.db, s.db.tables.Messages, strKey(fieldMessageID, messageID), "message", messageID)
}

// sent queries what from sent to to, optionally about one item.
func (s *MessageStore) sent(from, to, itemID string, unreadOnly bool) *dynamodb.QueryInput {
	conds := []string{"#to = :to"}
	names := map[string]string{"#to": "receiver_id"}
	values := attrs{":to": strAV(to)}
	if itemID != "" {
		conds = append(conds, "#i = :i")
		names["#i"] = fieldItemID
		values[":i"] = strAV(itemID)
	}
	if unreadOnly {
		conds = append(conds, "#r = :f")
		names["#r"] = fieldIsRead
		values[":f"] = boolAV(false)
	}
	return filtered(byIndex(s.db.tables.Messages, indexMessageSender, "sender_id", from),
		strings.Join(conds, " AND "), names, values)
}

// Thread returns the messages between two users, oldest first. An empty
// itemID spans every item.
func (s *MessageStore) Thread(ctx context.Context, userA, userB, itemID string) ([]domain.Message, error) {
	ab, err := queryAll[domain.Message](ctx, s.db, s.sent(userA, userB, itemID, false))
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	var ba []domain.Message
	if userA != userB {
		if ba, err = queryAll[domain.Message](ctx, s.db, s.sent(userB, userA, itemID, false)); err != nil {
			return nil, fmt.Errorf("load thread: %w", err)
		}
	}
	out := append(ab, ba...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out, nil
}

// ListForUser returns every message the user sent or received, newest first.
func (s *MessageStore) ListForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	t := s.db.tables.Messages
	sent, err := queryAll[domain.Message](ctx, s.db, byIndex(t, indexMessageSender, "sender_id", userID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	received, err := queryAll[domain.Message](ctx, s.db, byIndex(t, indexMessageReceiver, "receiver_id", userID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := sent
	for _, m := range received {
		if m.SenderID != userID {
			out = append(out, m)
		}
	}
	newestFirst(out, func(m domain.Message) time.Time { return m.CreatedAt }, func(m domain.Message) string { return m.MessageID })
	return out, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, messageID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		return markRead(ctx, s.db, s.db.tables.Messages, fieldMessageID, messageID, "message")
	})
}

// MarkThreadRead marks what senderID sent to receiverID as read.
func (s *MessageStore) MarkThreadRead(ctx context.Context, receiverID, senderID, itemID string) error {
	unread, err := queryAll[domain.Message](ctx, s.db, s.sent(senderID, receiverID, itemID, true))
	if err != nil {
		return fmt.Errorf("load unread thread: %w", err)
	}
	for _, m := range unread {
		err := s.db.write(ctx, func(ctx context.Context) error {
			return markRead(ctx, s.db, s.db.tables.Messages, fieldMessageID, m.MessageID, "message")
		})
		if err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string) (int, error) {
	q := filtered(byIndex(s.db.tables.Messages, indexMessageReceiver, "receiver_id", userID),
		"#r = :f", map[string]string{"#r": fieldIsRead}, attrs{":f": boolAV(false)})
	return countQuery(ctx, s.db, q)
}

// unlinkMessages drops the item reference from messages about itemID.
func unlinkMessages(ctx context.Context, d *DB, itemID string) error {
	list, err := queryAll[domain.Message](ctx, d, byIndex(d.tables.Messages, indexMessageItem, fieldItemID, itemID))
	if err != nil {
		return err
	}
	for _, m := range list {
		err := d.write(ctx, func(ctx context.Context) error {
			_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                aws.String(d.tables.Messages),
				Key:                      strKey(fieldMessageID, m.MessageID),
				UpdateExpression:         aws.String("REMOVE #i"),
				ExpressionAttributeNames: map[string]string{"#i": fieldItemID},
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("unlink message %s: %w", m.MessageID, err)
		}
	}
	return nil
}
