package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

// Service drives claims through pending → verified | rejected.
type Service interface {
	Submit(ctx context.Context, actor domain.Actor, req domain.SubmitClaimRequest) (*domain.Claim, error)
	Get(ctx context.Context, actor domain.Actor, claimID string) (*domain.Claim, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ClaimFilter) (domain.Page[domain.Claim], error)
	Update(ctx context.Context, actor domain.Actor, claimID string, req domain.UpdateClaimRequest) (*domain.Claim, error)
	Delete(ctx context.Context, actor domain.Actor, claimID string) error
}

type claimStore interface {
	Create(ctx context.Context, c *domain.Claim) error
	Get(ctx context.Context, claimID string) (*domain.Claim, error)
	FindOpen(ctx context.Context, itemID, userID string) (*domain.Claim, error)
	List(ctx context.Context, f domain.ClaimFilter) ([]domain.Claim, int, error)
	Transition(ctx context.Context, claimID string, from, to domain.ClaimStatus) error
	UpdateDetails(ctx context.Context, claimID string, proof, notes *string, requirePending bool) error
	Delete(ctx context.Context, claimID string, requirePending bool) error
}

type itemStore interface {
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	MarkClaimed(ctx context.Context, itemID, claimantID string) error
}

type adminLister interface {
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type ServiceDeps struct {
	Claims   claimStore
	Items    itemStore
	Users    adminLister
	Notifier notification.Notifier
}

type service struct {
	claims   claimStore
	items    itemStore
	users    adminLister
	notifier notification.Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		claims:   deps.Claims,
		items:    deps.Items,
		users:    deps.Users,
		notifier: deps.Notifier,
	}
}

func (s *service) Submit(ctx context.Context, actor domain.Actor, req domain.SubmitClaimRequest) (*domain.Claim, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("sign in to claim an item: %w", domain.ErrUnauthorized)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	item, err := s.items.Get(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status.Closed() {
		return nil, fmt.Errorf("item has already been claimed: %w", domain.ErrConflict)
	}
	switch _, err := s.claims.FindOpen(ctx, item.ItemID, actor.UserID); {
	case err == nil:
		return nil, fmt.Errorf("you already have an open claim for this item: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Claim{
		ClaimID:            id.New(),
		ItemID:             item.ItemID,
		UserID:             actor.UserID,
		VerificationStatus: domain.ClaimPending,
		ProofDescription:   req.ProofDescription,
		ClaimDate:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// The open-claim index rejects a concurrent duplicate that slipped past FindOpen.
	if err := s.claims.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("you already have an open claim for this item: %w", domain.ErrConflict)
		}
		return nil, err
	}

	s.announce(ctx, item, c)
	return c, nil
}

// announce tells every admin and the finder about a new claim.
func (s *service) announce(ctx context.Context, item *domain.Item, c *domain.Claim) {
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		slog.Warn("list admins for claim fan-out", "claim_id", c.ClaimID, "error", err)
	}
	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.UserID)
	}
	notification.Fanout(ctx, s.notifier, ids,
		fmt.Sprintf("New claim submitted for item '%s'", item.Name),
		domain.NotificationClaimUpdate, &item.ItemID, &c.ClaimID)

	if item.FoundByUserID != nil {
		notification.Fanout(ctx, s.notifier, []string{*item.FoundByUserID},
			fmt.Sprintf("Someone has claimed the item '%s' that you found", item.Name),
			domain.NotificationClaimUpdate, &item.ItemID, &c.ClaimID)
	}
}

func (s *service) Get(ctx context.Context, actor domain.Actor, claimID string) (*domain.Claim, error) {
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(c.UserID) {
		return nil, fmt.Errorf("not your claim: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) List(ctx context.Context, actor domain.Actor, filter domain.ClaimFilter) (domain.Page[domain.Claim], error) {
	if err := filter.PageRequest.Validate(); err != nil {
		return domain.Page[domain.Claim]{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.Page[domain.Claim]{}, fmt.Errorf("unknown claim status %q: %w", filter.Status, domain.ErrBadRequest)
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	claims, total, err := s.claims.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Claim]{}, err
	}
	return domain.NewPage(claims, total, filter.PageRequest), nil
}

func (s *service) Update(ctx context.Context, actor domain.Actor, claimID string, req domain.UpdateClaimRequest) (*domain.Claim, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		err = s.adminUpdate(ctx, c, req)
	} else {
		err = s.ownerUpdate(ctx, actor, c, req)
	}
	if err != nil {
		return nil, err
	}
	return s.claims.Get(ctx, claimID)
}

// ownerUpdate lets a claimant revise the proof while the claim is pending.
func (s *service) ownerUpdate(ctx context.Context, actor domain.Actor, c *domain.Claim, req domain.UpdateClaimRequest) error {
	switch {
	case !actor.Is(c.UserID):
		return fmt.Errorf("not your claim: %w", domain.ErrForbidden)
	case c.VerificationStatus != domain.ClaimPending:
		return fmt.Errorf("claim can no longer be changed: %w", domain.ErrForbidden)
	case req.VerificationStatus != nil || req.AdminNotes != nil || len(req.Unknown) > 0 || req.ProofDescription == nil:
		return fmt.Errorf("only the proof description can be changed: %w", domain.ErrForbidden)
	}
	err := s.claims.UpdateDetails(ctx, c.ClaimID, req.ProofDescription, nil, true)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("claim can no longer be changed: %w", domain.ErrForbidden)
	}
	return err
}

// adminUpdate decides the claim and edits admin notes. The claimant's proof
// is left as written.
func (s *service) adminUpdate(ctx context.Context, c *domain.Claim, req domain.UpdateClaimRequest) error {
	if req.VerificationStatus != nil {
		to := *req.VerificationStatus
		if !to.Valid() {
			return fmt.Errorf("unknown verification status %q: %w", to, domain.ErrBadRequest)
		}
		if to != c.VerificationStatus {
			if c.VerificationStatus.Terminal() {
				return fmt.Errorf("claim is already %s: %w", c.VerificationStatus, domain.ErrConflict)
			}
			var err error
			switch to {
			case domain.ClaimVerified:
				err = s.verify(ctx, c)
			case domain.ClaimRejected:
				err = s.reject(ctx, c)
			}
			if err != nil {
				return err
			}
		}
	}
	if req.AdminNotes != nil {
		return s.claims.UpdateDetails(ctx, c.ClaimID, nil, req.AdminNotes, false)
	}
	return nil
}

// verify moves the claim to verified and hands the item to the claimant. Both
// steps are conditional updates; if the item already has an owner the claim is
// put back to pending.
func (s *service) verify(ctx context.Context, c *domain.Claim) error {
	item, err := s.items.Get(ctx, c.ItemID)
	if err != nil {
		return err
	}
	if err := s.claims.Transition(ctx, c.ClaimID, domain.ClaimPending, domain.ClaimVerified); err != nil {
		return err
	}
	if err := s.items.MarkClaimed(ctx, c.ItemID, c.UserID); err != nil {
		if rbErr := s.claims.Transition(ctx, c.ClaimID, domain.ClaimVerified, domain.ClaimPending); rbErr != nil {
			slog.Error("revert claim after failed item update", "claim_id", c.ClaimID, "error", rbErr)
		}
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("item already belongs to another claimant: %w", domain.ErrConflict)
		}
		return err
	}
	notification.Fanout(ctx, s.notifier, []string{c.UserID},
		fmt.Sprintf("Your claim for '%s' has been verified. You can now pick it up.", item.Name),
		domain.NotificationClaimUpdate, &c.ItemID, &c.ClaimID)
	return nil
}

func (s *service) reject(ctx context.Context, c *domain.Claim) error {
	item, err := s.items.Get(ctx, c.ItemID)
	if err != nil {
		return err
	}
	if err := s.claims.Transition(ctx, c.ClaimID, domain.ClaimPending, domain.ClaimRejected); err != nil {
		return err
	}
	notification.Fanout(ctx, s.notifier, []string{c.UserID},
		fmt.Sprintf("Your claim for '%s' has been rejected.", item.Name),
		domain.NotificationClaimUpdate, &c.ItemID, &c.ClaimID)
	return nil
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, claimID string) error {
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if actor.IsAdmin() {
		return s.claims.Delete(ctx, claimID, false)
	}
	if !actor.Is(c.UserID) || c.VerificationStatus != domain.ClaimPending {
		return fmt.Errorf("only a pending claim can be withdrawn by its owner: %w", domain.ErrForbidden)
	}
	err = s.claims.Delete(ctx, claimID, true)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("only a pending claim can be withdrawn by its owner: %w", domain.ErrForbidden)
	}
	return err
}
