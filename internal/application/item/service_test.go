package item

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockItems struct{ mock.Mock }

func (m *mockItems) Create(ctx context.Context, it *domain.Item) error {
	return m.Called(ctx, it).Error(0)
}
func (m *mockItems) Get(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if it, _ := args.Get(0).(*domain.Item); it != nil {
		cp := *it
		return &cp, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockItems) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Item), args.Int(1), args.Error(2)
}
func (m *mockItems) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockItems) Update(ctx context.Context, it *domain.Item, expected domain.ItemStatus) error {
	return m.Called(ctx, it, expected).Error(0)
}
func (m *mockItems) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockClaims struct{ mock.Mock }

func (m *mockClaims) CountByItem(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type mockLocations struct{ mock.Mock }

func (m *mockLocations) Get(ctx context.Context, id string) (*domain.Location, error) {
	args := m.Called(ctx, id)
	if l, _ := args.Get(0).(*domain.Location); l != nil {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockImages struct{ mock.Mock }

func (m *mockImages) Save(ctx context.Context, key string, data []byte, ct string) (string, error) {
	args := m.Called(ctx, key, ct)
	return args.String(0), args.Error(1)
}
func (m *mockImages) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Get() ([]string, bool) {
	args := m.Called()
	cats, _ := args.Get(0).([]string)
	return cats, args.Bool(1)
}
func (m *mockCache) Set(c []string) { m.Called(c) }
func (m *mockCache) Invalidate()    { m.Called() }

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, userID, message string, typ domain.NotificationType, itemID, relatedID *string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, message, typ)
	return &domain.Notification{}, args.Error(0)
}

type fixture struct {
	items     *mockItems
	claims    *mockClaims
	locations *mockLocations
	images    *mockImages
	cache     *mockCache
	notifier  *mockNotifier
	svc       Service
}

func newFixture() *fixture {
	f := &fixture{
		items:     new(mockItems),
		claims:    new(mockClaims),
		locations: new(mockLocations),
		images:    new(mockImages),
		cache:     new(mockCache),
		notifier:  new(mockNotifier),
	}
	f.svc = NewService(ServiceDeps{
		Items: f.items, Claims: f.claims, Locations: f.locations,
		Images: f.images, Cache: f.cache, Notifier: f.notifier,
	})
	return f
}

var (
	finder   = domain.Actor{UserID: "u-finder", Role: domain.RoleUser}
	stranger = domain.Actor{UserID: "u-stranger", Role: domain.RoleUser}
	admin    = domain.Actor{UserID: "u-admin", Role: domain.RoleAdmin}
)

func ptr[T any](v T) *T { return &v }

func foundItem(status domain.ItemStatus) *domain.Item {
	it := &domain.Item{ItemID: "i1", Name: "Blue Backpack", Status: status, FoundByUserID: ptr(finder.UserID)}
	if status.Closed() {
		it.ClaimedByUserID = ptr("u-owner")
	}
	return it
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// --- Create ---

func TestCreate_DefaultsToFoundAndNotifiesWithCategory(t *testing.T) {
	f := newFixture()
	f.items.On("Create", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool {
		return it.Status == domain.ItemFound && *it.FoundByUserID == finder.UserID && *it.Category == "Bags"
	})).Return(nil)
	f.cache.On("Invalidate").Return()
	f.notifier.On("Notify", mock.Anything, finder.UserID,
		"New item 'Blue Backpack' has been added to the lost and found system.", domain.NotificationItemFound).Return(nil)

	it, err := f.svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: " Blue Backpack ", Category: ptr("Bags")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Blue Backpack", it.Name)
	f.notifier.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestCreate_LostWithoutCategoryIsSilent(t *testing.T) {
	f := newFixture()
	f.items.On("Create", mock.Anything, mock.Anything).Return(nil)

	it, err := f.svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys", Status: domain.ItemLost}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.ItemLost, it.Status)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_LostWithCategoryUsesLostType(t *testing.T) {
	f := newFixture()
	f.items.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Invalidate").Return()
	f.notifier.On("Notify", mock.Anything, finder.UserID, mock.Anything, domain.NotificationItemLost).Return(nil)

	_, err := f.svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys", Status: domain.ItemLost, Category: ptr("Keys")}, nil)
	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}

func TestCreate_RejectsOwnedStatus(t *testing.T) {
	_, err := newFixture().svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys", Status: domain.ItemClaimed}, nil)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_UnknownLocation(t *testing.T) {
	f := newFixture()
	f.locations.On("Get", mock.Anything, "nowhere").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys", DropOffLocationID: ptr("nowhere")}, nil)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_StoresImage(t *testing.T) {
	f := newFixture()
	f.images.On("Save", mock.Anything, mock.MatchedBy(func(k string) bool { return len(k) > 0 }), "image/jpeg").
		Return("/static/uploads/items/x.jpg", nil)
	f.items.On("Create", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool {
		return it.ImagePath != nil && *it.ImagePath == "/static/uploads/items/x.jpg"
	})).Return(nil)

	_, err := f.svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys"}, &domain.Image{Data: pngBytes(t)})
	require.NoError(t, err)
	f.images.AssertExpectations(t)
}

func TestCreate_BadImage(t *testing.T) {
	_, err := newFixture().svc.Create(context.Background(), finder, domain.CreateItemRequest{Name: "Keys"}, &domain.Image{Data: []byte("not an image")})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_Anonymous(t *testing.T) {
	_, err := newFixture().svc.Create(context.Background(), domain.Actor{}, domain.CreateItemRequest{Name: "Keys"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- Update: status guard ---

func TestUpdate_FinderFlipsFoundToLost(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)
	f.claims.On("CountByItem", mock.Anything, "i1").Return(0, nil)
	f.items.On("Update", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool { return it.Status == domain.ItemLost }), domain.ItemFound).Return(nil)

	it, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemLost)}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemLost, it.Status)
}

func TestUpdate_FinderBlockedByClaims(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)
	f.claims.On("CountByItem", mock.Anything, "i1").Return(2, nil)

	_, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemLost)}, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdate_FinderCannotClaimOrReturn(t *testing.T) {
	for _, target := range []domain.ItemStatus{domain.ItemClaimed, domain.ItemReturned} {
		f := newFixture()
		f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)

		_, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{Status: ptr(target)}, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden, target)
	}
}

func TestUpdate_FinderCannotReopenClaimedItem(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemClaimed), nil)

	_, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemFound)}, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdate_FinderCannotAssignOwner(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)

	_, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{ClaimedByUserID: ptr("u-x")}, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdate_StrangerForbidden(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)

	_, err := f.svc.Update(context.Background(), stranger, "i1", domain.UpdateItemRequest{Name: ptr("Mine now")}, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdate_AdminReturnedKeepsClaimant(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemClaimed), nil)
	f.items.On("Update", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool {
		return it.Status == domain.ItemReturned && *it.ClaimedByUserID == "u-owner"
	}), domain.ItemClaimed).Return(nil)

	_, err := f.svc.Update(context.Background(), admin, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemReturned)}, nil)
	require.NoError(t, err)
	f.items.AssertExpectations(t)
}

func TestUpdate_AdminClaimedNeedsClaimant(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)

	_, err := f.svc.Update(context.Background(), admin, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemClaimed)}, nil)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestUpdate_AdminClaimedWithClaimant(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)
	f.items.On("Update", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool {
		return it.Status == domain.ItemClaimed && *it.ClaimedByUserID == "u-new"
	}), domain.ItemFound).Return(nil)

	_, err := f.svc.Update(context.Background(), admin, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemClaimed), ClaimedByUserID: ptr("u-new")}, nil)
	require.NoError(t, err)
}

func TestUpdate_AdminReopenClearsClaimant(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemReturned), nil)
	f.items.On("Update", mock.Anything, mock.MatchedBy(func(it *domain.Item) bool {
		return it.Status == domain.ItemFound && it.ClaimedByUserID == nil
	}), domain.ItemReturned).Return(nil)

	it, err := f.svc.Update(context.Background(), admin, "i1", domain.UpdateItemRequest{Status: ptr(domain.ItemFound)}, nil)
	require.NoError(t, err)
	assert.Nil(t, it.ClaimedByUserID)
}

func TestUpdate_ConcurrentStatusChange(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)
	f.items.On("Update", mock.Anything, mock.Anything, domain.ItemFound).Return(domain.ErrConflict)

	_, err := f.svc.Update(context.Background(), admin, "i1", domain.UpdateItemRequest{Name: ptr("Backpack")}, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdate_CategoryChangeInvalidatesCache(t *testing.T) {
	f := newFixture()
	f.items.On("Get", mock.Anything, "i1").Return(foundItem(domain.ItemFound), nil)
	f.items.On("Update", mock.Anything, mock.Anything, domain.ItemFound).Return(nil)
	f.cache.On("Invalidate").Return().Once()

	_, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{Category: ptr("Bags")}, nil)
	require.NoError(t, err)
	f.cache.AssertExpectations(t)
}

func TestUpdate_ReplacesImage(t *testing.T) {
	f := newFixture()
	old := foundItem(domain.ItemFound)
	old.ImagePath = ptr("/static/uploads/items/old.jpg")
	f.items.On("Get", mock.Anything, "i1").Return(old, nil)
	f.images.On("Save", mock.Anything, mock.Anything, "image/jpeg").Return("/static/uploads/items/new.jpg", nil)
	f.items.On("Update", mock.Anything, mock.Anything, domain.ItemFound).Return(nil)
	f.images.On("Delete", mock.Anything, "/static/uploads/items/old.jpg").Return(nil)

	it, err := f.svc.Update(context.Background(), finder, "i1", domain.UpdateItemRequest{}, &domain.Image{Data: pngBytes(t)})
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/items/new.jpg", *it.ImagePath)
	f.images.AssertExpectations(t)
}

// --- Delete / Categories / List ---

func TestDelete_FinderOrAdmin(t *testing.T) {
	f := newFixture()
	it := foundItem(domain.ItemFound)
	it.Category = ptr("Bags")
	f.items.On("Get", mock.Anything, "i1").Return(it, nil)
	f.items.On("Delete", mock.Anything, "i1").Return(nil)
	f.cache.On("Invalidate").Return()

	assert.ErrorIs(t, f.svc.Delete(context.Background(), stranger, "i1"), domain.ErrForbidden)
	assert.NoError(t, f.svc.Delete(context.Background(), finder, "i1"))
	assert.NoError(t, f.svc.Delete(context.Background(), admin, "i1"))
	f.items.AssertNumberOfCalls(t, "Delete", 2)
}

func TestCategories_CachedAfterFirstLoad(t *testing.T) {
	f := newFixture()
	f.cache.On("Get").Return(nil, false).Once()
	f.items.On("Categories", mock.Anything).Return([]string{"Bags", "Keys"}, nil).Once()
	f.cache.On("Set", []string{"Bags", "Keys"}).Return()
	f.cache.On("Get").Return([]string{"Bags", "Keys"}, true)

	first, err := f.svc.Categories(context.Background())
	require.NoError(t, err)
	second, err := f.svc.Categories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	f.items.AssertNumberOfCalls(t, "Categories", 1)
}

func TestList_ValidatesFilter(t *testing.T) {
	f := newFixture()
	_, err := f.svc.List(context.Background(), domain.ItemFilter{Status: "misplaced", PageRequest: domain.PageRequest{Page: 1, PerPage: 10}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.svc.List(context.Background(), domain.ItemFilter{PageRequest: domain.PageRequest{Page: 1, PerPage: 500}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestList_Paginates(t *testing.T) {
	f := newFixture()
	page := domain.PageRequest{Page: 1, PerPage: 2}
	f.items.On("List", mock.Anything, domain.ItemFilter{Search: "bag", PageRequest: page}).
		Return([]domain.Item{*foundItem(domain.ItemFound)}, 3, nil)

	got, err := f.svc.List(context.Background(), domain.ItemFilter{Search: "  bag ", PageRequest: page})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, 3, got.Total)
}
