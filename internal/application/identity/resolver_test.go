package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/google"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKeys(key, &key.PublicKey, time.Hour)
}

func hs256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = BearerToken("bearer   abc ")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer ", "Bearer"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, h)
	}
}

func TestResolve_LocalToken(t *testing.T) {
	p := newLocal(t)
	tok, err := p.Sign(&domain.User{UserID: "u1", Role: domain.RoleAdmin, Name: "Ada"})
	require.NoError(t, err)

	r := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), nil), NewGoogle(nil, nil), NewLocal(p))
	a, err := r.Resolve(context.Background(), "Bearer "+tok)

	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "u1", Role: domain.RoleAdmin, Name: "Ada"}, a)
}

func TestResolve_HostedTokenDefaultsRole(t *testing.T) {
	tok := hs256(t, "shh", jwt.MapClaims{"sub": "h1", "email": "h@example.com", "exp": time.Now().Add(time.Hour).Unix()})

	r := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), nil), NewLocal(newLocal(t)))
	a, err := r.Resolve(context.Background(), "Bearer "+tok)

	require.NoError(t, err)
	assert.Equal(t, "h1", a.UserID)
	assert.Equal(t, domain.RoleUser, a.Role)
	assert.Equal(t, "h@example.com", a.Email)
}

func TestResolve_NoVerifierAccepts(t *testing.T) {
	forged := hs256(t, "guess", jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(time.Hour).Unix()})

	r := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), nil), NewLocal(newLocal(t)))
	_, err := r.Resolve(context.Background(), "Bearer "+forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolve_NoVerifiersConfigured(t *testing.T) {
	_, err := NewResolver().Resolve(context.Background(), "Bearer x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- google ---

type mockGoogle struct{ mock.Mock }

func (m *mockGoogle) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func googleShaped(t *testing.T) string {
	// Signed with a throwaway secret: only the issuer is read before Verify.
	return hs256(t, "x", jwt.MapClaims{"iss": "https://accounts.google.com", "sub": "g1"})
}

func TestGoogle_KnownUser(t *testing.T) {
	gv := new(mockGoogle)
	users := new(mockUsers)
	tok := googleShaped(t)
	gv.On("Verify", mock.Anything, tok).Return(&google.Payload{Sub: "g1", Email: "g@example.com", EmailVerified: true}, nil)
	users.On("GetByEmail", mock.Anything, "g@example.com").Return(&domain.User{UserID: "u9", Role: domain.RoleUser, Email: "g@example.com"}, nil)

	r := NewResolver(&Google{v: gv, users: users})
	a, err := r.Resolve(context.Background(), "Bearer "+tok)

	require.NoError(t, err)
	assert.Equal(t, "u9", a.UserID)
}

func TestGoogle_UnknownUserRejected(t *testing.T) {
	gv := new(mockGoogle)
	users := new(mockUsers)
	tok := googleShaped(t)
	gv.On("Verify", mock.Anything, tok).Return(&google.Payload{Email: "new@example.com", EmailVerified: true}, nil)
	users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound)

	_, err := NewResolver(&Google{v: gv, users: users}).Resolve(context.Background(), "Bearer "+tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGoogle_SkipsOtherIssuers(t *testing.T) {
	gv := new(mockGoogle)
	p := newLocal(t)
	tok, err := p.Sign(&domain.User{UserID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	a, err := NewResolver(&Google{v: gv, users: new(mockUsers)}, NewLocal(p)).Resolve(context.Background(), "Bearer "+tok)

	require.NoError(t, err)
	assert.Equal(t, "u1", a.UserID)
	gv.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

// --- hosted user sync ---

type mockHostedUsers struct{ mock.Mock }

func (m *mockHostedUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHostedUsers) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockHostedUsers) Update(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func hostedAdminToken(t *testing.T) string {
	return hs256(t, "shh", jwt.MapClaims{
		"sub":           "h-admin",
		"email":         "Ops@Example.com",
		"user_metadata": map[string]any{"role": "admin", "name": "Ops"},
		"exp":           time.Now().Add(time.Hour).Unix(),
	})
}

func TestHosted_FirstSignInCreatesUser(t *testing.T) {
	users := new(mockHostedUsers)
	users.On("Get", mock.Anything, "h-admin").Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.UserID == "h-admin" && u.Email == "ops@example.com" && u.Role == domain.RoleAdmin &&
			u.Name == "Ops" && u.AuthProvider == domain.AuthProviderHosted && u.PasswordHash == ""
	})).Return(nil)

	a, err := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), users)).Resolve(context.Background(), "Bearer "+hostedAdminToken(t))

	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "h-admin", Role: domain.RoleAdmin, Email: "ops@example.com", Name: "Ops"}, a)
	users.AssertExpectations(t)
}

func TestHosted_RefreshesChangedRole(t *testing.T) {
	users := new(mockHostedUsers)
	users.On("Get", mock.Anything, "h-admin").
		Return(&domain.User{UserID: "h-admin", Email: "ops@example.com", Name: "Ops", Role: domain.RoleUser, AuthProvider: domain.AuthProviderHosted}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool { return u.Role == domain.RoleAdmin })).Return(nil)

	_, err := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), users)).Resolve(context.Background(), "Bearer "+hostedAdminToken(t))

	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestHosted_UnchangedUserIsNotWritten(t *testing.T) {
	users := new(mockHostedUsers)
	users.On("Get", mock.Anything, "h-admin").
		Return(&domain.User{UserID: "h-admin", Email: "ops@example.com", Name: "Ops", Role: domain.RoleAdmin}, nil)

	_, err := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), users)).Resolve(context.Background(), "Bearer "+hostedAdminToken(t))

	require.NoError(t, err)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHosted_SyncFailureStillAuthenticates(t *testing.T) {
	users := new(mockHostedUsers)
	users.On("Get", mock.Anything, "h-admin").Return(nil, domain.ErrTransient)

	a, err := NewResolver(NewHosted(jwtinfra.NewHostedVerifier("shh"), users)).Resolve(context.Background(), "Bearer "+hostedAdminToken(t))

	require.NoError(t, err)
	assert.Equal(t, "h-admin", a.UserID)
}
