package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Driver names. "libsql" is registered by the binary, which links the
// CGO-based libSQL driver.
const (
	DriverLibSQL   = "libsql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var ErrNoRemote = errors.New("remote database url is not configured")

type Options struct {
	URL       string
	AuthToken string
	Timeout   time.Duration
}

// Resolve picks the driver, DSN and dialect for a remote URL:
// libsql:// and http(s):// go to libSQL, postgres:// to pgx, and file: URIs
// (including file:///abs/path) or bare paths to the pure-Go SQLite driver.
func Resolve(o Options) (driver, dsn string, dialect Dialect, err error) {
	raw := strings.TrimSpace(o.URL)
	if raw == "" {
		return "", "", nil, ErrNoRemote
	}

	scheme := ""
	if i := strings.Index(raw, "://"); i > 0 {
		scheme = strings.ToLower(raw[:i])
	}

	switch scheme {
	case "libsql", "http", "https", "ws", "wss":
		dsn = raw
		if o.AuthToken != "" {
			u, err := url.Parse(raw)
			if err != nil {
				return "", "", nil, fmt.Errorf("parse remote url: %w", err)
			}
			q := u.Query()
			q.Set("authToken", o.AuthToken)
			u.RawQuery = q.Encode()
			dsn = u.String()
		}
		return DriverLibSQL, dsn, SQLiteDialect{}, nil
	case "postgres", "postgresql":
		return DriverPostgres, raw, PostgresDialect{}, nil
	case "", "file":
		return DriverSQLite, raw, SQLiteDialect{}, nil
	default:
		return "", "", nil, fmt.Errorf("unsupported remote url scheme %q", scheme)
	}
}

// Open connects to the remote store. It does not probe the connection; call
// Ping for that.
func Open(ctx context.Context, o Options) (*SQLStore, error) {
	driver, dsn, dialect, err := Resolve(o)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote (%s): %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, dialect, o.Timeout), nil
}
