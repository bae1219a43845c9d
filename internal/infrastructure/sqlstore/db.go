package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know yet.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps a sqlx handle with the per-call timeout and the dialect needed by migrations.
type DB struct {
	db      *sqlx.DB
	dialect string
	timeout time.Duration
}

// Open connects to Postgres (via pgx) or SQLite (via modernc) depending on cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return open(ctx, "pgx", cfg.DatabaseURL, dialectPostgres, cfg.StoreTimeout)
	case config.DriverSQLite:
		return open(ctx, "sqlite", sqliteDSN(cfg.SQLitePath), dialectSQLite, cfg.StoreTimeout)
	}
	return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.StoreDriver)
}

func open(ctx context.Context, driver, dsn, dialect string, timeout time.Duration) (*DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dialect == dialectSQLite {
		// One writer at a time; an in-memory database also only exists per connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{db: db, dialect: dialect, timeout: timeout}, nil
}

// sqliteDSN applies the pragmas on every pooled connection.
func sqliteDSN(path string) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"busy_timeout(5000)",
		"foreign_keys(1)",
		"synchronous(NORMAL)",
	}
	if path == ":memory:" {
		pragmas = pragmas[1:]
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Add("_time_format", "sqlite")
	if strings.HasPrefix(path, "file:") {
		return path + "?" + q.Encode()
	}
	return "file:" + path + "?" + q.Encode()
}

func (d *DB) Close() error { return d.db.Close() }

// Ping reports whether the database answers within the store timeout.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return translate(d.db.PingContext(ctx))
}

// read runs an idempotent query with the store timeout and one retry on transient failures.
func (d *DB) read(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(1, retry.NewConstant(50*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		err := translate(fn(cctx))
		if errors.Is(err, domain.ErrTransient) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

// write runs a mutation with the store timeout. Mutations are never retried.
func (d *DB) write(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return translate(fn(cctx))
}

// inTx runs fn inside a transaction under the store timeout.
func (d *DB) inTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return d.write(ctx, func(ctx context.Context) error {
		tx, err := d.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func (d *DB) rebind(q string) string { return d.db.Rebind(q) }

// where accumulates AND-ed conditions written with '?' placeholders.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// likePattern escapes LIKE wildcards in user input; queries use ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// affected maps a zero-row update to domain.ErrNotFound.
func affected(res interface{ RowsAffected() (int64, error) }, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return nil
}

func joinComma(parts []string) string { return strings.Join(parts, ", ") }
