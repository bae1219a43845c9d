package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/validate"
)

// Relation selects which of a user's items to list.
type Relation string

const (
	RelationFound     Relation = "found"
	RelationClaimed   Relation = "claimed"
	RelationInvolving Relation = "involving"
)

type Service interface {
	List(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.User], error)
	Get(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error)
	Update(ctx context.Context, actor domain.Actor, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Actor, userID string) error
	Items(ctx context.Context, actor domain.Actor, userID string, rel Relation, page domain.PageRequest) (domain.Page[domain.Item], error)
	Claims(ctx context.Context, actor domain.Actor, userID string, page domain.PageRequest) (domain.Page[domain.Claim], error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.User, int, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, userID string) error
}

type itemLister interface {
	List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error)
}

type claimLister interface {
	List(ctx context.Context, f domain.ClaimFilter) ([]domain.Claim, int, error)
}

type ServiceDeps struct {
	Users  userStore
	Items  itemLister
	Claims claimLister
}

type service struct {
	users  userStore
	items  itemLister
	claims claimLister
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.Users, items: deps.Items, claims: deps.Claims}
}

func selfOrAdmin(actor domain.Actor, userID string) error {
	if !actor.IsAdmin() && !actor.Is(userID) {
		return fmt.Errorf("not allowed for another user: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) List(ctx context.Context, actor domain.Actor, page domain.PageRequest) (domain.Page[domain.User], error) {
	if !actor.IsAdmin() {
		return domain.Page[domain.User]{}, fmt.Errorf("only admins can list users: %w", domain.ErrForbidden)
	}
	if err := page.Validate(); err != nil {
		return domain.Page[domain.User]{}, err
	}
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.NewPage(users, total, page), nil
}

func (s *service) Get(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	if err := selfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, actor domain.Actor, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := selfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Role != nil && *req.Role != u.Role {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("only admins can change roles: %w", domain.ErrForbidden)
		}
		if !domain.ValidRole(*req.Role) {
			return nil, fmt.Errorf("unknown role %q: %w", *req.Role, domain.ErrBadRequest)
		}
		u.Role = *req.Role
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = req.PhoneNumber
		if *req.PhoneNumber == "" {
			u.PhoneNumber = nil
		}
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != u.Email {
			switch other, err := s.users.GetByEmail(ctx, email); {
			case err == nil && other.UserID != u.UserID:
				return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return nil, err
			}
			u.Email = email
		}
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, userID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can delete users: %w", domain.ErrForbidden)
	}
	return s.users.Delete(ctx, userID)
}

func (s *service) Items(ctx context.Context, actor domain.Actor, userID string, rel Relation, page domain.PageRequest) (domain.Page[domain.Item], error) {
	if err := selfOrAdmin(actor, userID); err != nil {
		return domain.Page[domain.Item]{}, err
	}
	if err := page.Validate(); err != nil {
		return domain.Page[domain.Item]{}, err
	}
	f := domain.ItemFilter{PageRequest: page}
	switch rel {
	case RelationFound:
		f.FoundBy = userID
	case RelationClaimed:
		f.ClaimedBy = userID
	case RelationInvolving:
		f.Involving = userID
	default:
		return domain.Page[domain.Item]{}, fmt.Errorf("unknown relation %q: %w", rel, domain.ErrBadRequest)
	}
	items, total, err := s.items.List(ctx, f)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

func (s *service) Claims(ctx context.Context, actor domain.Actor, userID string, page domain.PageRequest) (domain.Page[domain.Claim], error) {
	if err := selfOrAdmin(actor, userID); err != nil {
		return domain.Page[domain.Claim]{}, err
	}
	if err := page.Validate(); err != nil {
		return domain.Page[domain.Claim]{}, err
	}
	claims, total, err := s.claims.List(ctx, domain.ClaimFilter{UserID: userID, PageRequest: page})
	if err != nil {
		return domain.Page[domain.Claim]{}, err
	}
	return domain.NewPage(claims, total, page), nil
}
