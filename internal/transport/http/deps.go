package http

import (
	"context"

	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/google"
	appmiddleware "github.com/lostfound-api/internal/transport/http/middleware"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.User, int, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	// Delete removes the user with their claims and notifications and detaches their items.
	Delete(ctx context.Context, userID string) error
}

// ItemRepository is the minimal interface the router requires from an item store.
type ItemRepository interface {
	Create(ctx context.Context, it *domain.Item) error
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error)
	Categories(ctx context.Context) ([]string, error)
	// Update succeeds only while the stored status still equals expected.
	Update(ctx context.Context, it *domain.Item, expected domain.ItemStatus) error
	// MarkClaimed sets the claimant and status claimed unless the item is already closed.
	MarkClaimed(ctx context.Context, itemID, claimantID string) error
	Delete(ctx context.Context, itemID string) error
	CountByLocation(ctx context.Context, locationID string) (int, error)
}

// ClaimRepository is the minimal interface the router requires from a claim store.
type ClaimRepository interface {
	Create(ctx context.Context, c *domain.Claim) error
	Get(ctx context.Context, claimID string) (*domain.Claim, error)
	FindOpen(ctx context.Context, itemID, userID string) (*domain.Claim, error)
	List(ctx context.Context, f domain.ClaimFilter) ([]domain.Claim, int, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
	// Transition moves a claim from one status to another; ErrConflict when it is no longer in from.
	Transition(ctx context.Context, claimID string, from, to domain.ClaimStatus) error
	UpdateDetails(ctx context.Context, claimID string, proof, notes *string, requirePending bool) error
	Delete(ctx context.Context, claimID string, requirePending bool) error
}

// NotificationRepository is the minimal interface the router requires from a notification store.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID string) error
}

// LocationRepository is the minimal interface the router requires from a drop-off location store.
type LocationRepository interface {
	Create(ctx context.Context, l *domain.Location) error
	Get(ctx context.Context, locationID string) (*domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Update(ctx context.Context, l *domain.Location) error
	Delete(ctx context.Context, locationID string) error
}

// MessageRepository is the minimal interface the router requires from a message store.
type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	Thread(ctx context.Context, userA, userB, itemID string) ([]domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	MarkThreadRead(ctx context.Context, receiverID, senderID, itemID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// CategoryCache memoizes the distinct item categories.
type CategoryCache interface {
	Get() ([]string, bool)
	Set(categories []string)
	Invalidate()
}

type TokenSigner interface {
	Sign(u *domain.User) (string, error)
}

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Users         UserRepository
	Items         ItemRepository
	Claims        ClaimRepository
	Notifications NotificationRepository
	Locations     LocationRepository
	Messages      MessageRepository

	Images     item.ImageStore
	Categories CategoryCache           // optional
	Dispatcher notification.Dispatcher // optional out-of-band delivery
	Signer     TokenSigner
	Google     GoogleVerifier // optional; enables POST /auth/google
	Identity   appmiddleware.Resolver

	// AuthLimiter throttles the public auth endpoints. The caller owns it and
	// calls Stop on shutdown; nil leaves those routes unthrottled.
	AuthLimiter *appmiddleware.RateLimiter

	// UploadDir is served under UploadURLPrefix when images are stored on
	// local disk. Empty disables the static route.
	UploadDir       string
	UploadURLPrefix string
}
