package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/lostfound-api/internal/domain"
)

const claimColumns = `id, item_id, user_id, verification_status, proof_description, admin_notes, claim_date, created_at, updated_at`

// ClaimStore persists ownership claims. The partial unique index on
// (item_id, user_id) serializes concurrent submissions by the same user.
type ClaimStore struct {
	db *DB
}

func NewClaimStore(db *DB) *ClaimStore { return &ClaimStore{db: db} }

func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			c.ClaimID, c.ItemID, c.UserID, c.VerificationStatus, c.ProofDescription, c.AdminNotes, c.ClaimDate, c.CreatedAt, c.UpdatedAt)
		return err
	})
}

func (s *ClaimStore) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	var c domain.Claim
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &c, s.db.rebind(`SELECT `+claimColumns+` FROM claims WHERE id = ?`), claimID)
	})
	if err != nil {
		return nil, fmt.Errorf("get claim %s: %w", claimID, err)
	}
	return &c, nil
}

// FindOpen returns the user's pending or verified claim on the item.
func (s *ClaimStore) FindOpen(ctx context.Context, itemID, userID string) (*domain.Claim, error) {
	var c domain.Claim
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &c, s.db.rebind(
			`SELECT `+claimColumns+` FROM claims WHERE item_id = ? AND user_id = ? AND verification_status <> 'rejected'`),
			itemID, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("find open claim: %w", err)
	}
	return &c, nil
}

func (s *ClaimStore) List(ctx context.Context, f domain.ClaimFilter) ([]domain.Claim, int, error) {
	var w where
	if f.Status != "" {
		w.add("verification_status = ?", f.Status)
	}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.ItemID != "" {
		w.add("item_id = ?", f.ItemID)
	}
	var (
		claims []domain.Claim
		total  int
	)
	err := s.db.read(ctx, func(ctx context.Context) error {
		if err := s.db.db.GetContext(ctx, &total, s.db.rebind(`SELECT COUNT(*) FROM claims`+w.String()), w.args...); err != nil {
			return err
		}
		args := append(append([]interface{}{}, w.args...), f.PerPage, f.Offset())
		return s.db.db.SelectContext(ctx, &claims, s.db.rebind(
			`SELECT `+claimColumns+` FROM claims`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	return claims, total, nil
}

func (s *ClaimStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	var n int
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &n, s.db.rebind(`SELECT COUNT(*) FROM claims WHERE item_id = ?`), itemID)
	})
	return n, err
}

// Transition moves the claim from one verification status to another. It fails
// with domain.ErrConflict if the stored status is no longer from.
func (s *ClaimStore) Transition(ctx context.Context, claimID string, from, to domain.ClaimStatus) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE claims SET verification_status = ?, updated_at = ? WHERE id = ? AND verification_status = ?`),
			to, time.Now().UTC(), claimID, from)
		if err != nil {
			return err
		}
		return s.missingOrConflict(ctx, res, claimID)
	})
}

// UpdateDetails sets the non-nil text fields. With requirePending the write
// only lands while the claim is still pending.
func (s *ClaimStore) UpdateDetails(ctx context.Context, claimID string, proof, notes *string, requirePending bool) error {
	var sets where
	if proof != nil {
		sets.add("proof_description = ?", *proof)
	}
	if notes != nil {
		sets.add("admin_notes = ?", *notes)
	}
	if len(sets.clauses) == 0 {
		return nil
	}
	sets.add("updated_at = ?", time.Now().UTC())
	q := `UPDATE claims SET ` + joinComma(sets.clauses) + ` WHERE id = ?`
	args := append(sets.args, claimID)
	if requirePending {
		q += ` AND verification_status = 'pending'`
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(q), args...)
		if err != nil {
			return err
		}
		return s.missingOrConflict(ctx, res, claimID)
	})
}

// Delete removes the claim; with requirePending only while it is still pending.
func (s *ClaimStore) Delete(ctx context.Context, claimID string, requirePending bool) error {
	q := `DELETE FROM claims WHERE id = ?`
	if requirePending {
		q += ` AND verification_status = 'pending'`
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(q), claimID)
		if err != nil {
			return err
		}
		return s.missingOrConflict(ctx, res, claimID)
	})
}

func (s *ClaimStore) missingOrConflict(ctx context.Context, res interface{ RowsAffected() (int64, error) }, claimID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.db.db.GetContext(ctx, &exists, s.db.rebind(`SELECT COUNT(*) FROM claims WHERE id = ?`), claimID); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("claim %s not found: %w", claimID, domain.ErrNotFound)
	}
	return fmt.Errorf("claim %s changed concurrently: %w", claimID, domain.ErrConflict)
}
