package claim_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lostfound-api/internal/application/claim"
	"github.com/lostfound-api/internal/application/identity"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/lostfound-api/internal/infrastructure/sqlstore"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	users         *sqlstore.UserStore
	items         *sqlstore.ItemStore
	claims        *sqlstore.ClaimStore
	notifications *sqlstore.NotificationStore
	svc           claim.Service
}

func newWorld(t *testing.T) *world {
	db := sqlstore.NewTestDB(t)
	w := &world{
		users:         sqlstore.NewUserStore(db),
		items:         sqlstore.NewItemStore(db),
		claims:        sqlstore.NewClaimStore(db),
		notifications: sqlstore.NewNotificationStore(db),
	}
	w.svc = claim.NewService(claim.ServiceDeps{
		Claims:   w.claims,
		Items:    w.items,
		Users:    w.users,
		Notifier: notification.NewService(notification.ServiceDeps{Store: w.notifications}),
	})
	return w
}

func (w *world) user(t *testing.T, email, role string) domain.Actor {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{UserID: id.New(), Name: email, Email: email, Role: role, AuthProvider: domain.AuthProviderLocal, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, w.users.Create(context.Background(), u))
	return u.Actor()
}

func (w *world) inbox(t *testing.T, a domain.Actor) []domain.Notification {
	t.Helper()
	got, _, err := w.notifications.List(context.Background(), domain.NotificationFilter{UserID: a.UserID, PageRequest: domain.PageRequest{Page: 1, PerPage: 50}})
	require.NoError(t, err)
	return got
}

func TestBlueBackpackLifecycle(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	admin := w.user(t, "admin@example.com", domain.RoleAdmin)
	finder := w.user(t, "finder@example.com", domain.RoleUser)
	owner := w.user(t, "owner@example.com", domain.RoleUser)
	rival := w.user(t, "rival@example.com", domain.RoleUser)

	now := time.Now().UTC()
	item := &domain.Item{ItemID: id.New(), Name: "Blue Backpack", Status: domain.ItemFound, FoundByUserID: &finder.UserID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, w.items.Create(ctx, item))

	mine, err := w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID, ProofDescription: "Laptop sticker on the front pocket"})
	require.NoError(t, err)
	theirs, err := w.svc.Submit(ctx, rival, domain.SubmitClaimRequest{ItemID: item.ItemID, ProofDescription: "It is blue"})
	require.NoError(t, err)

	_, err = w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Len(t, w.inbox(t, admin), 2)
	finderInbox := w.inbox(t, finder)
	require.Len(t, finderInbox, 2)
	assert.Equal(t, "Someone has claimed the item 'Blue Backpack' that you found", finderInbox[0].Message)

	verified, err := w.svc.Update(ctx, admin, mine.ClaimID, domain.UpdateClaimRequest{VerificationStatus: ptr(domain.ClaimVerified)})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimVerified, verified.VerificationStatus)

	got, err := w.items.Get(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemClaimed, got.Status)
	require.NotNil(t, got.ClaimedByUserID)
	assert.Equal(t, owner.UserID, *got.ClaimedByUserID)

	ownerInbox := w.inbox(t, owner)
	require.Len(t, ownerInbox, 1)
	assert.Equal(t, "Your claim for 'Blue Backpack' has been verified. You can now pick it up.", ownerInbox[0].Message)
	assert.Equal(t, domain.NotificationClaimUpdate, ownerInbox[0].Type)

	// A second verification on the same item loses and leaves the rival pending.
	_, err = w.svc.Update(ctx, admin, theirs.ClaimID, domain.UpdateClaimRequest{VerificationStatus: ptr(domain.ClaimVerified)})
	assert.ErrorIs(t, err, domain.ErrConflict)
	back, err := w.claims.Get(ctx, theirs.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPending, back.VerificationStatus)

	_, err = w.svc.Update(ctx, admin, theirs.ClaimID, domain.UpdateClaimRequest{VerificationStatus: ptr(domain.ClaimRejected)})
	require.NoError(t, err)
	rivalInbox := w.inbox(t, rival)
	require.Len(t, rivalInbox, 1)
	assert.Equal(t, "Your claim for 'Blue Backpack' has been rejected.", rivalInbox[0].Message)

	// Terminal claims stay terminal.
	_, err = w.svc.Update(ctx, admin, mine.ClaimID, domain.UpdateClaimRequest{VerificationStatus: ptr(domain.ClaimRejected)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// New claims on a claimed item are refused.
	_, err = w.svc.Submit(ctx, w.user(t, "late@example.com", domain.RoleUser), domain.SubmitClaimRequest{ItemID: item.ItemID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestResubmitAfterRejection(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	admin := w.user(t, "admin@example.com", domain.RoleAdmin)
	owner := w.user(t, "owner@example.com", domain.RoleUser)

	now := time.Now().UTC()
	item := &domain.Item{ItemID: id.New(), Name: "Umbrella", Status: domain.ItemLost, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, w.items.Create(ctx, item))

	first, err := w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID})
	require.NoError(t, err)
	_, err = w.svc.Update(ctx, admin, first.ClaimID, domain.UpdateClaimRequest{VerificationStatus: ptr(domain.ClaimRejected)})
	require.NoError(t, err)

	second, err := w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID, ProofDescription: "Receipt attached"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ClaimID, second.ClaimID)

	page, err := w.svc.List(ctx, owner, domain.ClaimFilter{PageRequest: domain.PageRequest{Page: 1, PerPage: 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestOwnerUpdateRefusesBodiesWithoutProof(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	owner := w.user(t, "owner@example.com", domain.RoleUser)

	now := time.Now().UTC()
	item := &domain.Item{ItemID: id.New(), Name: "Keys", Status: domain.ItemFound, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, w.items.Create(ctx, item))
	c, err := w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID, ProofDescription: "Red keyring"})
	require.NoError(t, err)

	for name, req := range map[string]domain.UpdateClaimRequest{
		"empty":       {},
		"other field": {Unknown: []string{"item_id", "user_id"}},
	} {
		_, err := w.svc.Update(ctx, owner, c.ClaimID, req)
		assert.ErrorIs(t, err, domain.ErrForbidden, name)
	}

	stored, err := w.claims.Get(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, "Red keyring", stored.ProofDescription)
}

func TestHostedAdminReceivesClaimFanout(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	owner := w.user(t, "owner@example.com", domain.RoleUser)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "hosted-admin",
		"email":         "desk@example.com",
		"user_metadata": map[string]any{"role": domain.RoleAdmin},
		"exp":           time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("shared"))
	require.NoError(t, err)

	resolver := identity.NewResolver(identity.NewHosted(jwtinfra.NewHostedVerifier("shared"), w.users))
	hostedAdmin, err := resolver.Resolve(ctx, "Bearer "+tok)
	require.NoError(t, err)
	require.True(t, hostedAdmin.IsAdmin())

	now := time.Now().UTC()
	item := &domain.Item{ItemID: id.New(), Name: "Scarf", Status: domain.ItemFound, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, w.items.Create(ctx, item))
	_, err = w.svc.Submit(ctx, owner, domain.SubmitClaimRequest{ItemID: item.ItemID, ProofDescription: "Green wool"})
	require.NoError(t, err)

	inbox := w.inbox(t, hostedAdmin)
	require.Len(t, inbox, 1)
	assert.Equal(t, "New claim submitted for item 'Scarf'", inbox[0].Message)
	assert.Equal(t, domain.NotificationClaimUpdate, inbox[0].Type)
}

func ptr[T any](v T) *T { return &v }
