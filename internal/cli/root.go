// Package cli implements lostfoundctl, the operator command line.
package cli

import (
	"context"
	"io"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/store"
	"github.com/spf13/cobra"
)

// Opener connects to the configured store.
type Opener func(ctx context.Context) (*store.Set, error)

// operator is the actor CLI commands act as.
var operator = domain.Actor{UserID: "lostfoundctl", Role: domain.RoleAdmin, Name: "lostfoundctl"}

// NewRootCommand builds the command tree. open is called once per command run.
func NewRootCommand(open Opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "lostfoundctl",
		Short: "Operate the lost-and-found API's store",
		Long: `lostfoundctl prepares and maintains the store the lost-and-found API runs on.

It reads the same environment (and .env file) as the server, so STORE_DRIVER,
DATABASE_URL, SQLITE_PATH and the DYNAMO_TABLE_* settings select the backend.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.AddCommand(
		newMigrateCommand(open),
		newSeedCommand(open),
		newPromoteCommand(open),
	)
	return root
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, open Opener, fn func(ctx context.Context, s *store.Set) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
