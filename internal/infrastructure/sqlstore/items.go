package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lostfound-api/internal/domain"
)

const itemColumns = `id, name, description, category, status, image_path, lost_date, found_date,
	drop_off_location_id, found_by_user_id, claimed_by_user_id, created_at, updated_at`

// ItemStore persists lost and found items.
type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore { return &ItemStore{db: db} }

func (s *ItemStore) Create(ctx context.Context, it *domain.Item) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			it.ItemID, it.Name, it.Description, it.Category, it.Status, it.ImagePath, it.LostDate, it.FoundDate,
			it.DropOffLocationID, it.FoundByUserID, it.ClaimedByUserID, it.CreatedAt, it.UpdatedAt)
		return err
	})
}

func (s *ItemStore) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	var it domain.Item
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &it, s.db.rebind(`SELECT `+itemColumns+` FROM items WHERE id = ?`), itemID)
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return &it, nil
}

// List returns one page of items, newest first, plus the total matching count.
func (s *ItemStore) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error) {
	var w where
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, p, p)
	}
	if f.FoundBy != "" {
		w.add("found_by_user_id = ?", f.FoundBy)
	}
	if f.ClaimedBy != "" {
		w.add("claimed_by_user_id = ?", f.ClaimedBy)
	}
	if f.Involving != "" {
		w.add("(found_by_user_id = ? OR claimed_by_user_id = ?)", f.Involving, f.Involving)
	}

	var (
		items []domain.Item
		total int
	)
	err := s.db.read(ctx, func(ctx context.Context) error {
		if err := s.db.db.GetContext(ctx, &total, s.db.rebind(`SELECT COUNT(*) FROM items`+w.String()), w.args...); err != nil {
			return err
		}
		args := append(append([]interface{}{}, w.args...), f.PerPage, f.Offset())
		return s.db.db.SelectContext(ctx, &items, s.db.rebind(
			`SELECT `+itemColumns+` FROM items`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}

func (s *ItemStore) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.SelectContext(ctx, &out,
			`SELECT DISTINCT category FROM items WHERE category IS NOT NULL AND category <> '' ORDER BY category`)
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Update writes every mutable column, but only while the stored status still
// equals expected. A concurrent status change surfaces as domain.ErrConflict.
func (s *ItemStore) Update(ctx context.Context, it *domain.Item, expected domain.ItemStatus) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE items SET name = ?, description = ?, category = ?, status = ?, image_path = ?, lost_date = ?, found_date = ?,
			   drop_off_location_id = ?, claimed_by_user_id = ?, updated_at = ?
			 WHERE id = ? AND status = ?`),
			it.Name, it.Description, it.Category, it.Status, it.ImagePath, it.LostDate, it.FoundDate,
			it.DropOffLocationID, it.ClaimedByUserID, it.UpdatedAt, it.ItemID, expected)
		if err != nil {
			return err
		}
		return s.missingOrConflict(ctx, res, it.ItemID)
	})
}

// MarkClaimed hands the item to claimantID unless it already has an owner.
func (s *ItemStore) MarkClaimed(ctx context.Context, itemID, claimantID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE items SET status = 'claimed', claimed_by_user_id = ?, updated_at = ?
			 WHERE id = ? AND status NOT IN ('claimed', 'returned')`), claimantID, time.Now().UTC(), itemID)
		if err != nil {
			return err
		}
		return s.missingOrConflict(ctx, res, itemID)
	})
}

func (s *ItemStore) missingOrConflict(ctx context.Context, res interface{ RowsAffected() (int64, error) }, itemID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.db.db.GetContext(ctx, &exists, s.db.rebind(`SELECT COUNT(*) FROM items WHERE id = ?`), itemID); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("item %s not found: %w", itemID, domain.ErrNotFound)
	}
	return fmt.Errorf("item %s changed concurrently: %w", itemID, domain.ErrConflict)
}

// Delete removes the item with its claims and notifications; messages keep their text but lose the link.
func (s *ItemStore) Delete(ctx context.Context, itemID string) error {
	return s.db.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, q := range []string{
			`DELETE FROM notifications WHERE item_id = ?`,
			`DELETE FROM claims WHERE item_id = ?`,
			`UPDATE messages SET item_id = NULL WHERE item_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), itemID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM items WHERE id = ?`), itemID)
		if err != nil {
			return err
		}
		return affected(res, "item")
	})
}

func (s *ItemStore) CountByLocation(ctx context.Context, locationID string) (int, error) {
	var n int
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &n, s.db.rebind(`SELECT COUNT(*) FROM items WHERE drop_off_location_id = ?`), locationID)
	})
	return n, err
}
