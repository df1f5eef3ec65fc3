package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MoneyType is the column type used for decimal amounts. SQLite keeps them
// as text so values round-trip without float conversion.
func (d Dialect) MoneyType() string {
	if d == Postgres {
		return "NUMERIC(18,2)"
	}
	return "TEXT"
}

// TimeType is the column type used for timestamps.
func (d Dialect) TimeType() string {
	if d == Postgres {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

// ForUpdate is the row-lock clause appended to a SELECT. SQLite locks the
// whole database for the writing transaction and has no such clause.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects and pings the database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		// SQLite allows one writer; a single connection keeps transactions serialized.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	return db, dialect, nil
}
