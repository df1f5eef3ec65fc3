package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/orders"
	"salesservice/internal/platform/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout has a fixed-width fraction so stored timestamps compare
// correctly as text.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000-07:00"

// Store implements the order, catalog and report repositories on database/sql.
// Queries are written with ? placeholders and rebound for the dialect.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

var _ orders.Store = (*Store)(nil)

func New(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewTransientError("begin transaction", err)
	}

	if err := fn(&tx{q: sqlTx, d: s.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return domain.NewTransientError("commit transaction", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewTransientError("ping database", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

func timeArg(d database.Dialect, t time.Time) any {
	if d == database.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// wrapErr classifies driver errors. Domain errors pass through unchanged.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsPermanent(err) || domain.IsTransient(err) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return domain.NewTransientError(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
