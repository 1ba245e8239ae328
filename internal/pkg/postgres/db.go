package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/transcribo/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

// SaveStatus inserts or overwrites the status record of a document.
// Source URL is kept from the previous write when the new one has none
func (db *DB) SaveStatus(ctx context.Context, item *persistence.Status) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO status(id, source_url, status, content, progress, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (id) DO UPDATE SET
	source_url = COALESCE(EXCLUDED.source_url, status.source_url),
	status = EXCLUDED.status,
	content = EXCLUDED.content,
	progress = EXCLUDED.progress,
	updated = EXCLUDED.updated`, item.ID, item.SourceURL, item.Status, item.Content, item.Progress, item.Updated)
	if err != nil {
		return fmt.Errorf("can't save status: %w", err)
	}
	return nil
}

// LoadStatus loads status record, returns nil if not found
func (db *DB) LoadStatus(ctx context.Context, id string) (*persistence.Status, error) {
	var res persistence.Status
	err := db.pool.QueryRow(ctx, `SELECT id, source_url, status, content, progress, created, updated FROM status
		WHERE id = $1`, id).Scan(&res.ID, &res.SourceURL, &res.Status, &res.Content, &res.Progress,
		&res.Created, &res.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load status: %w", err)
	}
	return &res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
