// Package store opens the configured persistence backend and hands out its
// repositories.
package store

import (
	"context"
	"fmt"

	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/infrastructure/dynamo"
	"github.com/lostfound-api/internal/infrastructure/sqlstore"
	transporthttp "github.com/lostfound-api/internal/transport/http"
)

// Set is the repositories of one backend.
type Set struct {
	Users         transporthttp.UserRepository
	Items         transporthttp.ItemRepository
	Claims        transporthttp.ClaimRepository
	Notifications transporthttp.NotificationRepository
	Locations     transporthttp.LocationRepository
	Messages      transporthttp.MessageRepository

	ping  func(ctx context.Context) error
	close func() error
	sql   *sqlstore.DB
}

// Open connects to the backend named by cfg.StoreDriver and brings its
// schema up to date: pending migrations for SQL, missing tables for DynamoDB.
func Open(ctx context.Context, cfg *config.Config) (*Set, error) {
	if cfg.StoreDriver == config.DriverDynamo {
		return openDynamo(ctx, cfg)
	}
	db, err := sqlstore.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return FromSQL(db), nil
}

// FromSQL wraps an already migrated SQL database.
func FromSQL(db *sqlstore.DB) *Set {
	return &Set{
		Users:         sqlstore.NewUserStore(db),
		Items:         sqlstore.NewItemStore(db),
		Claims:        sqlstore.NewClaimStore(db),
		Notifications: sqlstore.NewNotificationStore(db),
		Locations:     sqlstore.NewLocationStore(db),
		Messages:      sqlstore.NewMessageStore(db),
		ping:          db.Ping,
		close:         db.Close,
		sql:           db,
	}
}

func openDynamo(ctx context.Context, cfg *config.Config) (*Set, error) {
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
		return nil, fmt.Errorf("bootstrap dynamodb tables: %w", err)
	}
	return FromDynamo(dynamo.New(client, cfg.DynamoTables, cfg.StoreTimeout)), nil
}

func FromDynamo(db *dynamo.DB) *Set {
	return &Set{
		Users:         dynamo.NewUserStore(db),
		Items:         dynamo.NewItemStore(db),
		Claims:        dynamo.NewClaimStore(db),
		Notifications: dynamo.NewNotificationStore(db),
		Locations:     dynamo.NewLocationStore(db),
		Messages:      dynamo.NewMessageStore(db),
		ping:          db.Ping,
		close:         func() error { return nil },
	}
}

func (s *Set) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *Set) Close() error { return s.close() }

// SQL returns the relational handle, or nil when the backend is DynamoDB.
func (s *Set) SQL() *sqlstore.DB { return s.sql }
