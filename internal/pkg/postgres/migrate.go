package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate creates status and gue tables if they are missing
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("can't migrate: %w", err)
	}
	goapp.Log.Info().Msg("db migrated")
	return nil
}
