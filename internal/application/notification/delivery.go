package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/lostfound-api/internal/domain"
)

const deliveryTimeout = 15 * time.Second

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type recipientLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type DelivererDeps struct {
	Users  recipientLookup
	Mailer mailer    // nil disables email
	SMS    smsSender // nil disables SMS
}

// Deliverer forwards stored notifications to the recipient by email and SMS.
// Each delivery runs in its own goroutine, detached from the request.
type Deliverer struct {
	users  recipientLookup
	mailer mailer
	sms    smsSender
	wait   func() // test hook, called when a delivery finishes
}

func NewDeliverer(deps DelivererDeps) *Deliverer {
	return &Deliverer{users: deps.Users, mailer: deps.Mailer, sms: deps.SMS}
}

func (d *Deliverer) Dispatch(ctx context.Context, n *domain.Notification) {
	if d.mailer == nil && d.sms == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if d.wait != nil {
			defer d.wait()
		}
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		d.deliver(ctx, n)
	}()
}

func (d *Deliverer) deliver(ctx context.Context, n *domain.Notification) {
	u, err := d.users.Get(ctx, n.UserID)
	if err != nil {
		slog.Warn("notification recipient lookup failed", "notification_id", n.NotificationID, "user_id", n.UserID, "error", err)
		return
	}
	if d.mailer != nil && u.Email != "" {
		if err := d.mailer.SendEmail(ctx, u.Email, subjectFor(n.Type), n.Message); err != nil {
			slog.Warn("notification email failed", "notification_id", n.NotificationID, "error", err)
		}
	}
	if d.sms != nil && u.PhoneNumber != nil && *u.PhoneNumber != "" {
		if err := d.sms.SendSMS(ctx, *u.PhoneNumber, n.Message); err != nil {
			slog.Warn("notification sms failed", "notification_id", n.NotificationID, "error", err)
		}
	}
}

func subjectFor(t domain.NotificationType) string {
	switch t {
	case domain.NotificationClaimUpdate:
		return "Update on your claim"
	case domain.NotificationMessage:
		return "New message"
	case domain.NotificationItemFound, domain.NotificationItemLost:
		return "Item reported"
	default:
		return "Lost and found notice"
	}
}
