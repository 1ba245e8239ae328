package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBIdsProvider provides IDs of old terminal status records
type DBIdsProvider struct {
	pool         *pgxpool.Pool
	expiresAfter time.Duration
}

// NewDBIdsProvider creates provider
func NewDBIdsProvider(pool *pgxpool.Pool, expiresAfter time.Duration) (*DBIdsProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	if expiresAfter <= 0 {
		return nil, fmt.Errorf("wrong expire duration %v", expiresAfter)
	}
	res := &DBIdsProvider{pool: pool, expiresAfter: expiresAfter}
	return res, nil
}

// GetExpired returns IDs of finished records not updated for the expire duration
func (db *DBIdsProvider) GetExpired(ctx context.Context) ([]string, error) {
	exp := time.Now().Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting old records...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM status WHERE updated < $1 AND status = ANY($2)`, exp,
		[]string{status.Success.String(), status.Failed.String(), status.Manual.String()})
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve IDs: %w", err)
	}
	return res, nil
}
