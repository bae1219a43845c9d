package message

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

// Service handles direct messages between users, optionally about an item.
type Service interface {
	Send(ctx context.Context, actor domain.Actor, req domain.SendMessageRequest) (*domain.Message, error)
	Conversations(ctx context.Context, actor domain.Actor) ([]domain.Conversation, error)
	Thread(ctx context.Context, actor domain.Actor, partnerID, itemID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, actor domain.Actor, messageID string) (*domain.Message, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int, error)
}

type messageStore interface {
	Create(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	Thread(ctx context.Context, userA, userB, itemID string) ([]domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	MarkThreadRead(ctx context.Context, receiverID, senderID, itemID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type itemGetter interface {
	Get(ctx context.Context, itemID string) (*domain.Item, error)
}

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type ServiceDeps struct {
	Messages messageStore
	Items    itemGetter
	Users    userGetter
	Notifier notification.Notifier
}

type service struct {
	messages messageStore
	items    itemGetter
	users    userGetter
	notifier notification.Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{messages: deps.Messages, items: deps.Items, users: deps.Users, notifier: deps.Notifier}
}

func (s *service) Send(ctx context.Context, actor domain.Actor, req domain.SendMessageRequest) (*domain.Message, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.ReceiverID == actor.UserID {
		return nil, fmt.Errorf("cannot message yourself: %w", domain.ErrBadRequest)
	}
	if _, err := s.users.Get(ctx, req.ReceiverID); err != nil {
		return nil, err
	}
	if req.ItemID != nil && *req.ItemID != "" {
		if _, err := s.items.Get(ctx, *req.ItemID); err != nil {
			return nil, err
		}
	} else {
		req.ItemID = nil
	}

	now := time.Now().UTC()
	m := &domain.Message{
		MessageID:  id.New(),
		SenderID:   actor.UserID,
		ReceiverID: req.ReceiverID,
		ItemID:     req.ItemID,
		Content:    strings.TrimSpace(req.Content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	notification.Fanout(ctx, s.notifier, []string{m.ReceiverID},
		fmt.Sprintf("You have a new message from %s", actor.DisplayName()),
		domain.NotificationMessage, m.ItemID, &m.MessageID)
	return m, nil
}

// Conversations groups the actor's messages by partner, newest first.
func (s *service) Conversations(ctx context.Context, actor domain.Actor) ([]domain.Conversation, error) {
	msgs, err := s.messages.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	byPartner := make(map[string]*domain.Conversation)
	order := make([]string, 0)
	for _, m := range msgs {
		partner := m.SenderID
		if partner == actor.UserID {
			partner = m.ReceiverID
		}
		c, ok := byPartner[partner]
		if !ok {
			// msgs arrive newest first, so the first one seen is the latest.
			c = &domain.Conversation{
				PartnerID:     partner,
				LastMessage:   m.Content,
				LastMessageAt: m.CreatedAt,
				ItemID:        m.ItemID,
			}
			byPartner[partner] = c
			order = append(order, partner)
		}
		if m.ReceiverID == actor.UserID && !m.Read {
			c.UnreadCount++
		}
	}

	out := make([]domain.Conversation, 0, len(order))
	for _, p := range order {
		c := byPartner[p]
		if u, err := s.users.Get(ctx, p); err == nil {
			c.PartnerName = u.Name
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

// Thread returns the exchange with partnerID oldest first and marks the
// messages the actor received as read.
func (s *service) Thread(ctx context.Context, actor domain.Actor, partnerID, itemID string) ([]domain.Message, error) {
	if partnerID == actor.UserID {
		return nil, fmt.Errorf("cannot open a conversation with yourself: %w", domain.ErrBadRequest)
	}
	msgs, err := s.messages.Thread(ctx, actor.UserID, partnerID, itemID)
	if err != nil {
		return nil, err
	}
	unread := false
	for i := range msgs {
		if msgs[i].ReceiverID == actor.UserID && !msgs[i].Read {
			unread = true
			msgs[i].Read = true
		}
	}
	if unread {
		if err := s.messages.MarkThreadRead(ctx, actor.UserID, partnerID, itemID); err != nil {
			return nil, err
		}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

func (s *service) MarkRead(ctx context.Context, actor domain.Actor, messageID string) (*domain.Message, error) {
	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(m.ReceiverID) {
		return nil, fmt.Errorf("only the receiver can mark a message read: %w", domain.ErrForbidden)
	}
	if !m.Read {
		if err := s.messages.MarkRead(ctx, messageID); err != nil {
			return nil, err
		}
		m.Read = true
	}
	return m, nil
}

func (s *service) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	return s.messages.CountUnread(ctx, actor.UserID)
}
