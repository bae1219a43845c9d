package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lostfound-api/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// translate maps driver errors onto domain sentinels. Errors that are already
// domain errors pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("record not found: %w", domain.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("store call timed out: %w", domain.ErrTransient)
	case errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("store connection lost: %w", domain.ErrTransient)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514": // unique, foreign key, check
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrConflict)
		case "40001", "40P01", "57014": // serialization, deadlock, query canceled
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrTransient)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%s: %w", liteErr.Error(), domain.ErrConflict)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w", liteErr.Error(), domain.ErrTransient)
		}
	}
	return err
}
