package location

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

const earthRadiusKM = 6371.0

// Service manages drop-off locations. Reads are public, writes are admin only.
type Service interface {
	Create(ctx context.Context, actor domain.Actor, req domain.CreateLocationRequest) (*domain.Location, error)
	Get(ctx context.Context, locationID string) (*domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Update(ctx context.Context, actor domain.Actor, locationID string, req domain.UpdateLocationRequest) (*domain.Location, error)
	Delete(ctx context.Context, actor domain.Actor, locationID string) error
	Nearest(ctx context.Context, lat, lng float64) (*domain.NearestLocation, error)
}

type locationStore interface {
	Create(ctx context.Context, l *domain.Location) error
	Get(ctx context.Context, locationID string) (*domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Update(ctx context.Context, l *domain.Location) error
	Delete(ctx context.Context, locationID string) error
}

type itemCounter interface {
	CountByLocation(ctx context.Context, locationID string) (int, error)
}

type ServiceDeps struct {
	Locations locationStore
	Items     itemCounter
}

type service struct {
	locations locationStore
	items     itemCounter
}

func NewService(deps ServiceDeps) Service {
	return &service{locations: deps.Locations, items: deps.Items}
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can manage drop-off locations: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.CreateLocationRequest) (*domain.Location, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude go together: %w", domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	l := &domain.Location{
		LocationID:    id.New(),
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		ContactPerson: req.ContactPerson,
		PhoneNumber:   req.PhoneNumber,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.locations.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) Get(ctx context.Context, locationID string) (*domain.Location, error) {
	return s.locations.Get(ctx, locationID)
}

func (s *service) List(ctx context.Context) ([]domain.Location, error) {
	ls, err := s.locations.List(ctx)
	if err != nil {
		return nil, err
	}
	if ls == nil {
		ls = []domain.Location{}
	}
	return ls, nil
}

func (s *service) Update(ctx context.Context, actor domain.Actor, locationID string, req domain.UpdateLocationRequest) (*domain.Location, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	l, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		l.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		l.Address = strings.TrimSpace(*req.Address)
	}
	if req.ContactPerson != nil {
		l.ContactPerson = req.ContactPerson
	}
	if req.PhoneNumber != nil {
		l.PhoneNumber = req.PhoneNumber
	}
	if req.Latitude != nil {
		l.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		l.Longitude = req.Longitude
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude go together: %w", domain.ErrBadRequest)
	}
	l.UpdatedAt = time.Now().UTC()
	if err := s.locations.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Delete refuses while any item still names the location.
func (s *service) Delete(ctx context.Context, actor domain.Actor, locationID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.locations.Get(ctx, locationID); err != nil {
		return err
	}
	n, err := s.items.CountByLocation(ctx, locationID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d items still use this location: %w", n, domain.ErrConflict)
	}
	return s.locations.Delete(ctx, locationID)
}

func (s *service) Nearest(ctx context.Context, lat, lng float64) (*domain.NearestLocation, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", domain.ErrBadRequest)
	}
	ls, err := s.locations.List(ctx)
	if err != nil {
		return nil, err
	}
	var best *domain.NearestLocation
	for i := range ls {
		l := &ls[i]
		if !l.HasCoordinates() {
			continue
		}
		d := haversineKM(lat, lng, *l.Latitude, *l.Longitude)
		if best == nil || d < best.DistanceKM {
			best = &domain.NearestLocation{Location: l, DistanceKM: d}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no drop-off location has coordinates: %w", domain.ErrNotFound)
	}
	best.DistanceKM = math.Round(best.DistanceKM*100) / 100
	return best, nil
}

// haversineKM is the great-circle distance between two points in kilometres.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
