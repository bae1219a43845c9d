package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/lostfound-api/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations (SQL) or create missing tables (DynamoDB)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, open, func(ctx context.Context, s *store.Set) error {
					if err := s.Ping(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether each is applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, open, func(ctx context.Context, s *store.Set) error {
					db := s.SQL()
					if db == nil {
						fmt.Fprintln(cmd.OutOrStdout(), "DynamoDB has no migrations; tables are created on open")
						return nil
					}
					states, err := db.MigrationStatus(ctx)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "VERSION\tSTATE\tSOURCE")
					for _, st := range states {
						state := "pending"
						if st.Applied {
							state = "applied"
						}
						fmt.Fprintf(w, "%d\t%s\t%s\n", st.Version, state, st.Source)
					}
					return w.Flush()
				})
			},
		},
	)
	return cmd
}
