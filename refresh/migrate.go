package refresh

import (
	"context"
	"database/sql"

	// Registers the pgx database/sql driver so callers can sql.Open("pgx", dsn)
	// with only this package imported.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/authshift/authshift/refresh/migrations"
)

// RunMigrations applies the embedded refresh_tokens schema migrations via
// goose. It is idempotent: already-applied versions are skipped.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
