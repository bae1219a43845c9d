package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStore_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	finder := seedUser(t, db, "f@example.com", domain.RoleUser)
	seedItem(t, db, "Blue Backpack", finder, func(it *domain.Item) { it.Category = strPtr("Bags") })
	seedItem(t, db, "Red Umbrella", finder, func(it *domain.Item) { it.Status = domain.ItemLost })
	seedItem(t, db, "Keys", nil, func(it *domain.Item) { it.Description = "bunch with a BLUE tag" })

	items := NewItemStore(db)

	got, total, err := items.List(ctx, domain.ItemFilter{Search: "blue", PageRequest: page(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 2)

	got, total, err = items.List(ctx, domain.ItemFilter{Status: domain.ItemLost, PageRequest: page(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Red Umbrella", got[0].Name)

	got, total, err = items.List(ctx, domain.ItemFilter{FoundBy: finder.UserID, PageRequest: page(2, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 1)
}

func TestItemStore_SearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	seedItem(t, db, "100% wool scarf", nil)
	seedItem(t, db, "Plain scarf", nil)

	_, total, err := NewItemStore(db).List(ctx, domain.ItemFilter{Search: "100%", PageRequest: page(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestItemStore_Categories(t *testing.T) {
	db := NewTestDB(t)
	seedItem(t, db, "a", nil, func(it *domain.Item) { it.Category = strPtr("Bags") })
	seedItem(t, db, "b", nil, func(it *domain.Item) { it.Category = strPtr("Bags") })
	seedItem(t, db, "c", nil, func(it *domain.Item) { it.Category = strPtr("Electronics") })
	seedItem(t, db, "d", nil)

	cats, err := NewItemStore(db).Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bags", "Electronics"}, cats)
}

func TestItemStore_MarkClaimedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	it := seedItem(t, db, "Phone", nil)
	items := NewItemStore(db)

	require.NoError(t, items.MarkClaimed(ctx, it.ItemID, "u1"))
	err := items.MarkClaimed(ctx, it.ItemID, "u2")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	got, err := items.Get(ctx, it.ItemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemClaimed, got.Status)
	require.NotNil(t, got.ClaimedByUserID)
	assert.Equal(t, "u1", *got.ClaimedByUserID)

	assert.True(t, errors.Is(items.MarkClaimed(ctx, "missing", "u1"), domain.ErrNotFound))
}

func TestItemStore_UpdateGuardsStatus(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	it := seedItem(t, db, "Laptop", nil)
	items := NewItemStore(db)

	it.Status = domain.ItemLost
	it.UpdatedAt = time.Now().UTC()
	require.NoError(t, items.Update(ctx, it, domain.ItemFound))

	it.Name = "Laptop bag"
	err := items.Update(ctx, it, domain.ItemFound)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestItemStore_OwnerInvariantEnforced(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	it := seedItem(t, db, "Watch", nil)

	it.Status = domain.ItemClaimed
	err := NewItemStore(db).Update(ctx, it, domain.ItemFound)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestItemStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	it := seedItem(t, db, "Bike", nil)
	claims := NewClaimStore(db)
	require.NoError(t, claims.Create(ctx, newClaim(it.ItemID, "u1")))
	notifs := NewNotificationStore(db)
	require.NoError(t, notifs.Create(ctx, &domain.Notification{
		NotificationID: "n1", UserID: "u1", ItemID: &it.ItemID, Message: "x",
		Type: domain.NotificationClaimUpdate, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, NewItemStore(db).Delete(ctx, it.ItemID))

	n, err := claims.CountByItem(ctx, it.ItemID)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = notifs.Get(ctx, "n1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
