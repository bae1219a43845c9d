package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/lostfound-api/internal/application/user"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/store"
	"github.com/spf13/cobra"
)

func newPromoteCommand(open Opener) *cobra.Command {
	role := domain.RoleAdmin
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Change a user's role (admin by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			return withStore(cmd, open, func(ctx context.Context, s *store.Set) error {
				u, err := s.Users.GetByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("look up %s: %w", email, err)
				}
				svc := user.NewService(user.ServiceDeps{Users: s.Users, Items: s.Items, Claims: s.Claims})
				if _, err := svc.Update(ctx, operator, u.UserID, domain.UpdateUserRequest{Role: &role}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", domain.RoleAdmin, "role to assign (admin or user)")
	return cmd
}
