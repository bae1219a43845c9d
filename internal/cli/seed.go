package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lostfound-api/internal/application/location"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type seedOptions struct {
	adminName     string
	adminEmail    string
	adminPassword string
	locations     bool
}

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }

var sampleLocations = []domain.CreateLocationRequest{
	{Name: "Main Library Front Desk", Address: "1 University Ave", ContactPerson: str("Library staff"), Latitude: f64(40.7291), Longitude: f64(-73.9965)},
	{Name: "Student Union Info Booth", Address: "60 Washington Sq S", ContactPerson: str("Info booth"), Latitude: f64(40.7295), Longitude: f64(-73.9980)},
	{Name: "Campus Security Office", Address: "7 E 12th St", PhoneNumber: str("+1 212 555 0100"), Latitude: f64(40.7342), Longitude: f64(-73.9932)},
}

func newSeedCommand(open Opener) *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and sample drop-off locations",
		Long: `seed is idempotent: an existing account with the admin email is promoted
instead of recreated, and sample locations are only added to an empty store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.adminPassword) < 8 {
				return fmt.Errorf("--admin-password must be at least 8 characters")
			}
			return withStore(cmd, open, func(ctx context.Context, s *store.Set) error {
				return seed(ctx, cmd, s, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.adminName, "admin-name", "Admin User", "display name of the admin account")
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "admin@lostandfound.com", "email of the admin account")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "", "password of the admin account (required)")
	cmd.Flags().BoolVar(&opts.locations, "locations", true, "add sample drop-off locations when none exist")
	_ = cmd.MarkFlagRequired("admin-password")
	return cmd
}

func seed(ctx context.Context, cmd *cobra.Command, s *store.Set, opts seedOptions) error {
	out := cmd.OutOrStdout()
	email := strings.ToLower(strings.TrimSpace(opts.adminEmail))

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != domain.RoleAdmin {
			u.Role = domain.RoleAdmin
			u.UpdatedAt = time.Now().UTC()
			if err := s.Users.Update(ctx, u); err != nil {
				return fmt.Errorf("promote %s: %w", email, err)
			}
		}
		fmt.Fprintf(out, "admin %s already exists\n", email)
	case errors.Is(err, domain.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.Users.Create(ctx, &domain.User{
			UserID:       id.New(),
			Name:         opts.adminName,
			Email:        email,
			Role:         domain.RoleAdmin,
			PasswordHash: string(hash),
			AuthProvider: domain.AuthProviderLocal,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(out, "created admin %s\n", email)
	default:
		return err
	}

	if !opts.locations {
		return nil
	}
	existing, err := s.Locations.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Fprintf(out, "%d locations already exist, skipping samples\n", len(existing))
		return nil
	}
	svc := location.NewService(location.ServiceDeps{Locations: s.Locations, Items: s.Items})
	for _, req := range sampleLocations {
		l, err := svc.Create(ctx, operator, req)
		if err != nil {
			return fmt.Errorf("create location %q: %w", req.Name, err)
		}
		fmt.Fprintf(out, "created location %s (%s)\n", l.Name, l.LocationID)
	}
	return nil
}
