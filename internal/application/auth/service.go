package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/google"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Result is a signed-in user and the bearer token for it.
type Result struct {
	Token string
	User  *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Result, error)
	Login(ctx context.Context, req domain.LoginRequest) (*Result, error)
	GoogleLogin(ctx context.Context, req domain.GoogleLoginRequest) (*Result, error)
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	ChangePassword(ctx context.Context, actor domain.Actor, req domain.ChangePasswordRequest) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type tokenSigner interface {
	Sign(u *domain.User) (string, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type ServiceDeps struct {
	Users  userStore
	Signer tokenSigner
	Google googleVerifier // nil disables Google sign-in
}

type service struct {
	users  userStore
	signer tokenSigner
	google googleVerifier
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.Users, signer: deps.Signer, google: deps.Google}
}

var errInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Result, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	switch _, err := s.users.GetByEmail(ctx, email); {
	case err == nil:
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
		AuthProvider: domain.AuthProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*Result, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(u)
}

// GoogleLogin signs in with a Google ID token, creating the account on first use.
func (s *service) GoogleLogin(ctx context.Context, req domain.GoogleLoginRequest) (*Result, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in is not configured: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if p.Email == "" || !p.EmailVerified {
		return nil, fmt.Errorf("google account email is not verified: %w", domain.ErrUnauthorized)
	}

	u, err := s.users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return s.issue(u)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	name := p.Name
	if name == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}
	now := time.Now().UTC()
	u = &domain.User{
		UserID:       id.New(),
		Name:         name,
		Email:        p.Email,
		Role:         domain.RoleUser,
		AuthProvider: domain.AuthProviderGoogle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		// Lost a race with a concurrent first sign-in.
		if u, err = s.users.GetByEmail(ctx, p.Email); err != nil {
			return nil, err
		}
	}
	return s.issue(u)
}

// Me returns the stored profile. A hosted-provider user whose token carries
// no email has no local row; their profile is built from the token.
func (s *service) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("not signed in: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, actor.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.User{
			UserID:       actor.UserID,
			Name:         actor.DisplayName(),
			Email:        actor.Email,
			Role:         actor.Role,
			AuthProvider: domain.AuthProviderHosted,
		}, nil
	}
	return u, err
}

func (s *service) ChangePassword(ctx context.Context, actor domain.Actor, req domain.ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("account has no local password: %w", domain.ErrBadRequest)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is wrong: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, u)
}

func (s *service) issue(u *domain.User) (*Result, error) {
	tok, err := s.signer.Sign(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{Token: tok, User: u}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
