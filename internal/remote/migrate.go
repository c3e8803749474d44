package remote

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/repairdesk/internal/remote/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate creates or upgrades the remote schema. It returns the versions
// that were applied.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) ([]int64, error) {
	gd, dir := goose.DialectSQLite3, "sqlite"
	if _, ok := dialect.(PostgresDialect); ok {
		gd, dir = goose.DialectPostgres, "postgres"
	}

	fsys, err := fs.Sub(migrations.Migrations, dir)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate remote: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}
