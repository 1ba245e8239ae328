package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner deletes the status record of a document
type Cleaner struct {
	pool *pgxpool.Pool
}

// NewCleaner creates status record cleaner
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	return &Cleaner{pool: pool}, nil
}

// Clean deletes record by ID
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `DELETE FROM status WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	return nil
}
