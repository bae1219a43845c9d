package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

// Service is the notification sink. Other services write through Notify;
// recipients read and acknowledge through the rest.
type Service interface {
	Notifier
	Create(ctx context.Context, actor domain.Actor, req domain.CreateNotificationRequest) (*domain.Notification, error)
	List(ctx context.Context, actor domain.Actor, read *bool, page domain.PageRequest) (domain.Page[domain.Notification], int, error)
	Get(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, actor domain.Actor) (int, error)
	Delete(ctx context.Context, actor domain.Actor, notificationID string) error
}

type notificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID string) error
}

// Notifier is the write side of the sink, as seen by other services.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, typ domain.NotificationType, itemID, relatedID *string) (*domain.Notification, error)
}

// Dispatcher pushes a stored notification to an out-of-band channel.
// Dispatch must not block the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification)
}

type ServiceDeps struct {
	Store      notificationStore
	Dispatcher Dispatcher // optional
}

type service struct {
	store      notificationStore
	dispatcher Dispatcher
}

func NewService(deps ServiceDeps) Service {
	return &service{store: deps.Store, dispatcher: deps.Dispatcher}
}

func (s *service) Notify(ctx context.Context, userID, message string, typ domain.NotificationType, itemID, relatedID *string) (*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("notification recipient is required: %w", domain.ErrBadRequest)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", typ, domain.ErrBadRequest)
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		ItemID:         itemID,
		RelatedID:      relatedID,
		Message:        message,
		Type:           typ,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, n)
	}
	return n, nil
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can send notifications: %w", domain.ErrForbidden)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = domain.NotificationSystem
	}
	return s.Notify(ctx, req.UserID, req.Message, typ, req.ItemID, nil)
}

// List returns the actor's notifications plus their total unread count.
func (s *service) List(ctx context.Context, actor domain.Actor, read *bool, page domain.PageRequest) (domain.Page[domain.Notification], int, error) {
	if err := page.Validate(); err != nil {
		return domain.Page[domain.Notification]{}, 0, err
	}
	items, total, err := s.store.List(ctx, domain.NotificationFilter{UserID: actor.UserID, Read: read, PageRequest: page})
	if err != nil {
		return domain.Page[domain.Notification]{}, 0, err
	}
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return domain.Page[domain.Notification]{}, 0, err
	}
	return domain.NewPage(items, total, page), unread, nil
}

func (s *service) Get(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error) {
	n, err := s.store.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(n.UserID) && !actor.IsAdmin() {
		return nil, fmt.Errorf("not your notification: %w", domain.ErrForbidden)
	}
	return n, nil
}

func (s *service) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error) {
	n, err := s.store.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(n.UserID) {
		return nil, fmt.Errorf("not your notification: %w", domain.ErrForbidden)
	}
	if n.Read {
		return n, nil
	}
	if err := s.store.MarkRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	return s.store.MarkAllRead(ctx, actor.UserID)
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, notificationID string) error {
	if _, err := s.Get(ctx, actor, notificationID); err != nil {
		return err
	}
	return s.store.Delete(ctx, notificationID)
}

// Fanout sends the same notification to several recipients. Failures are
// logged and skipped so one bad recipient never blocks the rest.
func Fanout(ctx context.Context, n Notifier, recipients []string, message string, typ domain.NotificationType, itemID, relatedID *string) int {
	sent := 0
	seen := make(map[string]bool, len(recipients))
	for _, r := range recipients {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		if _, err := n.Notify(ctx, r, message, typ, itemID, relatedID); err != nil {
			slog.Warn("notification not stored", "user_id", r, "type", typ, "error", err)
			continue
		}
		sent++
	}
	return sent
}
