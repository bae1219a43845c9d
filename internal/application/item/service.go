package item

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/imaging"
	"github.com/lostfound-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, actor domain.Actor, req domain.CreateItemRequest, img *domain.Image) (*domain.Item, error)
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter) (domain.Page[domain.Item], error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, actor domain.Actor, itemID string, req domain.UpdateItemRequest, img *domain.Image) (*domain.Item, error)
	Delete(ctx context.Context, actor domain.Actor, itemID string) error
}

type itemStore interface {
	Create(ctx context.Context, it *domain.Item) error
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, it *domain.Item, expected domain.ItemStatus) error
	Delete(ctx context.Context, itemID string) error
}

type claimCounter interface {
	CountByItem(ctx context.Context, itemID string) (int, error)
}

type locationGetter interface {
	Get(ctx context.Context, locationID string) (*domain.Location, error)
}

// ImageStore saves processed pictures and returns the URL clients load them from.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type categoryCache interface {
	Get() ([]string, bool)
	Set(categories []string)
	Invalidate()
}

type ServiceDeps struct {
	Items     itemStore
	Claims    claimCounter
	Locations locationGetter
	Images    ImageStore
	Cache     categoryCache // optional
	Notifier  notification.Notifier
}

type service struct {
	items     itemStore
	claims    claimCounter
	locations locationGetter
	images    ImageStore
	cache     categoryCache
	notifier  notification.Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		items:     deps.Items,
		claims:    deps.Claims,
		locations: deps.Locations,
		images:    deps.Images,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
	}
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.CreateItemRequest, img *domain.Image) (*domain.Item, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("sign in to report an item: %w", domain.ErrUnauthorized)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.checkLocation(ctx, req.DropOffLocationID); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.ItemFound
	}

	now := time.Now().UTC()
	it := &domain.Item{
		ItemID:            id.New(),
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Category:          normalizeCategory(req.Category),
		Status:            status,
		LostDate:          req.LostDate,
		FoundDate:         req.FoundDate,
		DropOffLocationID: nonEmpty(req.DropOffLocationID),
		FoundByUserID:     &actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if img != nil {
		url, err := s.storeImage(ctx, it.ItemID, img)
		if err != nil {
			return nil, err
		}
		it.ImagePath = &url
	}
	if err := s.items.Create(ctx, it); err != nil {
		s.dropImage(ctx, it.ImagePath)
		return nil, err
	}

	if it.Category != nil {
		s.invalidateCategories()
		typ := domain.NotificationItemFound
		if it.Status == domain.ItemLost {
			typ = domain.NotificationItemLost
		}
		notification.Fanout(ctx, s.notifier, []string{actor.UserID},
			fmt.Sprintf("New item '%s' has been added to the lost and found system.", it.Name),
			typ, &it.ItemID, nil)
	}
	return it, nil
}

func (s *service) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.items.Get(ctx, itemID)
}

func (s *service) List(ctx context.Context, filter domain.ItemFilter) (domain.Page[domain.Item], error) {
	if err := filter.PageRequest.Validate(); err != nil {
		return domain.Page[domain.Item]{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.Page[domain.Item]{}, fmt.Errorf("unknown item status %q: %w", filter.Status, domain.ErrBadRequest)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.items.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	return domain.NewPage(items, total, filter.PageRequest), nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if cats, ok := s.cache.Get(); ok {
			return cats, nil
		}
	}
	cats, err := s.items.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []string{}
	}
	if s.cache != nil {
		s.cache.Set(cats)
	}
	return cats, nil
}

func (s *service) Update(ctx context.Context, actor domain.Actor, itemID string, req domain.UpdateItemRequest, img *domain.Image) (*domain.Item, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !it.FoundBy(actor.UserID) {
		return nil, fmt.Errorf("only the finder or an admin can edit this item: %w", domain.ErrForbidden)
	}
	expected := it.Status
	if err := s.applyStatus(ctx, actor, it, req); err != nil {
		return nil, err
	}

	oldCategory := it.Category
	if req.Name != nil {
		it.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		it.Description = *req.Description
	}
	if req.Category != nil {
		it.Category = normalizeCategory(req.Category)
	}
	if req.LostDate != nil {
		it.LostDate = req.LostDate
	}
	if req.FoundDate != nil {
		it.FoundDate = req.FoundDate
	}
	if req.DropOffLocationID != nil {
		if err := s.checkLocation(ctx, req.DropOffLocationID); err != nil {
			return nil, err
		}
		it.DropOffLocationID = req.DropOffLocationID
		if *req.DropOffLocationID == "" {
			it.DropOffLocationID = nil
		}
	}

	oldImage := it.ImagePath
	if img != nil {
		url, err := s.storeImage(ctx, it.ItemID, img)
		if err != nil {
			return nil, err
		}
		it.ImagePath = &url
	}
	it.UpdatedAt = time.Now().UTC()

	if err := s.items.Update(ctx, it, expected); err != nil {
		if img != nil {
			s.dropImage(ctx, it.ImagePath)
		}
		return nil, err
	}
	if img != nil {
		s.dropImage(ctx, oldImage)
	}
	if !sameCategory(oldCategory, it.Category) {
		s.invalidateCategories()
	}
	return it, nil
}

// applyStatus is the status guard. Admins may move an item anywhere but an
// owned status needs a claimant. Finders may only flip found and lost, and
// only while nobody has claimed the item.
func (s *service) applyStatus(ctx context.Context, actor domain.Actor, it *domain.Item, req domain.UpdateItemRequest) error {
	if req.ClaimedByUserID != nil && !actor.IsAdmin() {
		return fmt.Errorf("only admins can assign an owner: %w", domain.ErrForbidden)
	}
	target := it.Status
	if req.Status != nil {
		target = *req.Status
	}
	if !target.Valid() {
		return fmt.Errorf("unknown item status %q: %w", target, domain.ErrBadRequest)
	}

	if actor.IsAdmin() {
		switch target {
		case domain.ItemFound, domain.ItemLost:
			if req.ClaimedByUserID != nil && *req.ClaimedByUserID != "" {
				return fmt.Errorf("a %s item has no owner: %w", target, domain.ErrBadRequest)
			}
			it.ClaimedByUserID = nil
		case domain.ItemClaimed, domain.ItemReturned:
			if req.ClaimedByUserID != nil && *req.ClaimedByUserID != "" {
				it.ClaimedByUserID = req.ClaimedByUserID
			}
			if it.ClaimedByUserID == nil {
				return fmt.Errorf("claimed_by_user_id is required for a %s item: %w", target, domain.ErrBadRequest)
			}
		}
		it.Status = target
		return nil
	}

	if target == it.Status {
		return nil
	}
	if it.Status.Closed() || target.Closed() {
		return fmt.Errorf("finders can only switch between found and lost: %w", domain.ErrForbidden)
	}
	n, err := s.claims.CountByItem(ctx, it.ItemID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("item already has claims: %w", domain.ErrConflict)
	}
	it.Status = target
	return nil
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, itemID string) error {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !it.FoundBy(actor.UserID) {
		return fmt.Errorf("only the finder or an admin can delete this item: %w", domain.ErrForbidden)
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		return err
	}
	s.dropImage(ctx, it.ImagePath)
	if it.Category != nil {
		s.invalidateCategories()
	}
	return nil
}

func (s *service) checkLocation(ctx context.Context, locationID *string) error {
	if locationID == nil || *locationID == "" {
		return nil
	}
	if _, err := s.locations.Get(ctx, *locationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unknown drop_off_location_id %q: %w", *locationID, domain.ErrBadRequest)
		}
		return err
	}
	return nil
}

func (s *service) storeImage(ctx context.Context, itemID string, img *domain.Image) (string, error) {
	processed, err := imaging.Process(img.Data)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("items/%s/%s.jpg", itemID, id.New())
	return s.images.Save(ctx, key, processed.Data, processed.ContentType)
}

func (s *service) dropImage(ctx context.Context, url *string) {
	if url == nil || *url == "" {
		return
	}
	if err := s.images.Delete(ctx, *url); err != nil {
		slog.Warn("remove stale item image", "path", *url, "error", err)
	}
}

func (s *service) invalidateCategories() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func normalizeCategory(c *string) *string {
	if c == nil {
		return nil
	}
	v := strings.TrimSpace(*c)
	if v == "" {
		return nil
	}
	return &v
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func sameCategory(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
