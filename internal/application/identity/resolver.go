package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/google"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
)

// Verifier turns a bearer token into an Actor or rejects it.
type Verifier interface {
	Resolve(ctx context.Context, token string) (domain.Actor, error)
}

// Resolver tries each configured verifier in order and returns the first
// actor that verifies. It never trusts an unverified token.
type Resolver struct {
	verifiers []Verifier
}

// NewResolver skips nil verifiers so disabled providers can be passed as-is.
func NewResolver(vs ...Verifier) *Resolver {
	r := &Resolver{}
	for _, v := range vs {
		if v != nil {
			r.verifiers = append(r.verifiers, v)
		}
	}
	return r
}

// Resolve parses an Authorization header value.
func (r *Resolver) Resolve(ctx context.Context, header string) (domain.Actor, error) {
	token, err := BearerToken(header)
	if err != nil {
		return domain.Actor{}, err
	}
	for _, v := range r.verifiers {
		a, err := v.Resolve(ctx, token)
		if err != nil {
			continue
		}
		if a.UserID == "" {
			return domain.Actor{}, fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
		}
		if !domain.ValidRole(a.Role) {
			a.Role = domain.RoleUser
		}
		return a, nil
	}
	return domain.Actor{}, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
}

func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("missing or malformed bearer token: %w", domain.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}

// --- verifiers ---

type localTokens interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Local accepts RS256 tokens this API issued.
type Local struct{ p localTokens }

func NewLocal(p localTokens) *Local { return &Local{p: p} }

func (l *Local) Resolve(_ context.Context, token string) (domain.Actor, error) {
	c, err := l.p.Verify(token)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: c.Subject, Role: c.Role, Email: c.Email, Name: c.Name}, nil
}

type hostedTokens interface {
	Verify(token string) (*jwtinfra.HostedIdentity, error)
}

type hostedUsers interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}

// Hosted accepts HS256 tokens from the hosted identity provider and keeps a
// local users row in step with the token so fan-out, messaging and delivery
// can find the account.
type Hosted struct {
	v     hostedTokens
	users hostedUsers
}

// NewHosted returns nil when v is nil so the resolver skips it.
func NewHosted(v *jwtinfra.HostedVerifier, users hostedUsers) Verifier {
	if v == nil {
		return nil
	}
	return &Hosted{v: v, users: users}
}

func (h *Hosted) Resolve(ctx context.Context, token string) (domain.Actor, error) {
	id, err := h.v.Verify(token)
	if err != nil {
		return domain.Actor{}, err
	}
	a := domain.Actor{UserID: id.Subject, Role: id.Role, Email: strings.ToLower(strings.TrimSpace(id.Email)), Name: id.Name}
	if !domain.ValidRole(a.Role) {
		a.Role = domain.RoleUser
	}
	// The token is already verified; a failed sync must not turn it into a 401.
	if err := h.sync(ctx, a); err != nil {
		slog.Warn("sync hosted user", "user_id", a.UserID, "error", err)
	}
	return a, nil
}

// sync creates the row on first sight and refreshes role, email and name
// when the provider changes them.
func (h *Hosted) sync(ctx context.Context, a domain.Actor) error {
	if h.users == nil || a.UserID == "" || a.Email == "" {
		return nil
	}
	u, err := h.users.Get(ctx, a.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		err = h.users.Create(ctx, &domain.User{
			UserID:       a.UserID,
			Name:         a.DisplayName(),
			Email:        a.Email,
			Role:         a.Role,
			AuthProvider: domain.AuthProviderHosted,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("email %s belongs to another account: %w", a.Email, err)
		}
		return err
	case err != nil:
		return err
	}
	if u.Role == a.Role && u.Email == a.Email && (a.Name == "" || u.Name == a.Name) {
		return nil
	}
	u.Role, u.Email = a.Role, a.Email
	if a.Name != "" {
		u.Name = a.Name
	}
	u.UpdatedAt = time.Now().UTC()
	return h.users.Update(ctx, u)
}

type googleTokens interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type userByEmail interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Google accepts Google ID tokens for users who already signed in once.
type Google struct {
	v     googleTokens
	users userByEmail
}

// NewGoogle returns nil when v is nil so the resolver skips it.
func NewGoogle(v *google.Verifier, users userByEmail) Verifier {
	if v == nil {
		return nil
	}
	return &Google{v: v, users: users}
}

var errNotGoogle = errors.New("not a google token")

func (g *Google) Resolve(ctx context.Context, token string) (domain.Actor, error) {
	// Reading the issuer only routes the token; the signature is checked by Verify.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.Actor{}, err
	}
	if iss, _ := claims.GetIssuer(); !google.IsGoogleIssuer(iss) {
		return domain.Actor{}, errNotGoogle
	}
	p, err := g.v.Verify(ctx, token)
	if err != nil {
		return domain.Actor{}, err
	}
	if !p.EmailVerified {
		return domain.Actor{}, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}
	u, err := g.users.GetByEmail(ctx, p.Email)
	if err != nil {
		return domain.Actor{}, err
	}
	return u.Actor(), nil
}
