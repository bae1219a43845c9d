package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, db *DB, email, role string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		UserID: id.New(), Name: email, Email: email, Role: role,
		AuthProvider: domain.AuthProviderLocal, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewUserStore(db).Create(context.Background(), u))
	return u
}

func seedItem(t *testing.T, db *DB, name string, finder *domain.User, mutate ...func(*domain.Item)) *domain.Item {
	t.Helper()
	now := time.Now().UTC()
	it := &domain.Item{
		ItemID: id.New(), Name: name, Description: name + " description",
		Status: domain.ItemFound, CreatedAt: now, UpdatedAt: now,
	}
	if finder != nil {
		it.FoundByUserID = &finder.UserID
	}
	for _, m := range mutate {
		m(it)
	}
	require.NoError(t, NewItemStore(db).Create(context.Background(), it))
	return it
}

func newClaim(itemID, userID string) *domain.Claim {
	now := time.Now().UTC()
	return &domain.Claim{
		ClaimID: id.New(), ItemID: itemID, UserID: userID,
		VerificationStatus: domain.ClaimPending, ProofDescription: "mine",
		ClaimDate: now, CreatedAt: now, UpdatedAt: now,
	}
}

func page(p, per int) domain.PageRequest { return domain.PageRequest{Page: p, PerPage: per} }
