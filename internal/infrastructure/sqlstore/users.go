package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lostfound-api/internal/domain"
)

const userColumns = `id, name, email, phone_number, role, password_hash, auth_provider, created_at, updated_at`

// UserStore persists accounts.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			u.UserID, u.Name, u.Email, u.PhoneNumber, u.Role, u.PasswordHash, u.AuthProvider, u.CreatedAt, u.UpdatedAt)
		return err
	})
}

func (s *UserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &u, s.db.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID)
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &u, nil
}

// GetByEmail expects an already normalized (lower-case) address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &u, s.db.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, page domain.PageRequest) ([]domain.User, int, error) {
	var (
		users []domain.User
		total int
	)
	err := s.db.read(ctx, func(ctx context.Context) error {
		if err := s.db.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
			return err
		}
		return s.db.db.SelectContext(ctx, &users, s.db.rebind(
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
			page.PerPage, page.Offset())
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *UserStore) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	var users []domain.User
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.SelectContext(ctx, &users, s.db.rebind(
			`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at`), role)
	})
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, u *domain.User) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE users SET name = ?, email = ?, phone_number = ?, role = ?, password_hash = ?, auth_provider = ?, updated_at = ?
			 WHERE id = ?`),
			u.Name, u.Email, u.PhoneNumber, u.Role, u.PasswordHash, u.AuthProvider, u.UpdatedAt, u.UserID)
		if err != nil {
			return err
		}
		return affected(res, "user")
	})
}

// Delete removes the account together with its notifications and claims.
// Items it found lose their finder; items it owned go back to found.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	return s.db.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		now := time.Now().UTC()
		stmts := []struct {
			q    string
			args []interface{}
		}{
			{`DELETE FROM notifications WHERE user_id = ?`, []interface{}{userID}},
			{`DELETE FROM claims WHERE user_id = ?`, []interface{}{userID}},
			{`UPDATE items SET found_by_user_id = NULL, updated_at = ? WHERE found_by_user_id = ?`, []interface{}{now, userID}},
			{`UPDATE items SET claimed_by_user_id = NULL, status = 'found', updated_at = ? WHERE claimed_by_user_id = ?`, []interface{}{now, userID}},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, tx.Rebind(st.q), st.args...); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), userID)
		if err != nil {
			return err
		}
		return affected(res, "user")
	})
}
