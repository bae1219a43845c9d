package sqlstore

import (
	"context"
	"fmt"

	"github.com/lostfound-api/internal/domain"
)

const locationColumns = `id, name, address, contact_person, phone_number, latitude, longitude, created_at, updated_at`

// LocationStore persists drop-off locations.
type LocationStore struct {
	db *DB
}

func NewLocationStore(db *DB) *LocationStore { return &LocationStore{db: db} }

func (s *LocationStore) Create(ctx context.Context, l *domain.Location) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`INSERT INTO drop_off_locations (`+locationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			l.LocationID, l.Name, l.Address, l.ContactPerson, l.PhoneNumber, l.Latitude, l.Longitude, l.CreatedAt, l.UpdatedAt)
		return err
	})
}

func (s *LocationStore) Get(ctx context.Context, locationID string) (*domain.Location, error) {
	var l domain.Location
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.GetContext(ctx, &l, s.db.rebind(`SELECT `+locationColumns+` FROM drop_off_locations WHERE id = ?`), locationID)
	})
	if err != nil {
		return nil, fmt.Errorf("get location %s: %w", locationID, err)
	}
	return &l, nil
}

func (s *LocationStore) List(ctx context.Context) ([]domain.Location, error) {
	var out []domain.Location
	err := s.db.read(ctx, func(ctx context.Context) error {
		return s.db.db.SelectContext(ctx, &out, `SELECT `+locationColumns+` FROM drop_off_locations ORDER BY name, id`)
	})
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

func (s *LocationStore) Update(ctx context.Context, l *domain.Location) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(
			`UPDATE drop_off_locations SET name = ?, address = ?, contact_person = ?, phone_number = ?, latitude = ?, longitude = ?, updated_at = ?
			 WHERE id = ?`),
			l.Name, l.Address, l.ContactPerson, l.PhoneNumber, l.Latitude, l.Longitude, l.UpdatedAt, l.LocationID)
		if err != nil {
			return err
		}
		return affected(res, "location")
	})
}

// Delete fails with domain.ErrConflict while items still reference the location.
func (s *LocationStore) Delete(ctx context.Context, locationID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		res, err := s.db.db.ExecContext(ctx, s.db.rebind(`DELETE FROM drop_off_locations WHERE id = ?`), locationID)
		if err != nil {
			return err
		}
		return affected(res, "location")
	})
}
