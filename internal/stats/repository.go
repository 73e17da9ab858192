package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository persists stats snapshots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a snapshot repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the snapshot for one asset.
func (r *Repository) Save(ctx context.Context, stats VisitStats) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats snapshot: %w", err)
	}

	query := `
INSERT INTO image_stats (short_code, snapshot, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (short_code) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now();`

	if _, err := r.pool.Exec(ctx, query, stats.ShortCode, payload); err != nil {
		return fmt.Errorf("save stats snapshot: %w", err)
	}
	return nil
}

// LoadAll reads every persisted snapshot.
func (r *Repository) LoadAll(ctx context.Context) ([]VisitStats, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT snapshot FROM image_stats;`)
	if err != nil {
		return nil, fmt.Errorf("load stats snapshots: %w", err)
	}
	defer rows.Close()

	var all []VisitStats
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan stats snapshot: %w", err)
		}
		var snapshot VisitStats
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal stats snapshot: %w", err)
		}
		all = append(all, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats snapshots: %w", err)
	}
	return all, nil
}

// Delete drops the snapshot for one asset.
func (r *Repository) Delete(ctx context.Context, shortCode string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `DELETE FROM image_stats WHERE short_code = $1;`, shortCode); err != nil {
		return fmt.Errorf("delete stats snapshot: %w", err)
	}
	return nil
}
