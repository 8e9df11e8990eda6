package db

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the reference ciq* schema. The API never writes these
// tables; the schema exists for local development and integration fixtures.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log := zap.L().With(zap.String("component", "db.migrate"))

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrationFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return eris.Wrap(err, "db: set goose dialect")
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return eris.Wrap(err, "db: apply migrations")
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return eris.Wrap(err, "db: read schema version")
	}
	log.Info("schema up to date", zap.Int64("version", version))
	return nil
}
