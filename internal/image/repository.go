package image

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to asset metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new asset repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `id, storage_key, original_name, mime_type, size_bytes, short_code, uploader_email, batch_id, created_at`

// Create inserts metadata for a published asset.
func (r *Repository) Create(ctx context.Context, asset Asset) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO images (id, storage_key, original_name, mime_type, size_bytes, short_code, uploader_email, batch_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + assetColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		asset.ID,
		asset.StorageKey,
		asset.OriginalName,
		asset.MimeType,
		asset.SizeBytes,
		asset.ShortCode,
		asset.UploaderEmail,
		asset.BatchID,
	)

	stored, err := scanAsset(row)
	if err != nil {
		return Asset{}, fmt.Errorf("create asset metadata: %w", err)
	}
	return stored, nil
}

// GetByShortCode fetches a single asset.
func (r *Repository) GetByShortCode(ctx context.Context, shortCode string) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + assetColumns + ` FROM images WHERE short_code = $1;`

	asset, err := scanAsset(r.pool.QueryRow(ctx, query, shortCode))
	if err != nil {
		if err == pgx.ErrNoRows {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// ShortCodeExists reports whether a code is already issued.
func (r *Repository) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM images WHERE short_code = $1);`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check short code: %w", err)
	}
	return exists, nil
}

// DeleteByShortCode removes an asset record and returns the deleted row.
func (r *Repository) DeleteByShortCode(ctx context.Context, shortCode string) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM images WHERE short_code = $1 RETURNING ` + assetColumns + `;`

	asset, err := scanAsset(r.pool.QueryRow(ctx, query, shortCode))
	if err != nil {
		if err == pgx.ErrNoRows {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("delete asset: %w", err)
	}
	return asset, nil
}

// ListByUploader returns the upload history for a user, newest first.
func (r *Repository) ListByUploader(ctx context.Context, email string) ([]Asset, error) {
	return r.list(ctx, `SELECT `+assetColumns+` FROM images WHERE uploader_email = $1 ORDER BY created_at DESC;`, email)
}

// ListByBatch returns all assets uploaded in one batch.
func (r *Repository) ListByBatch(ctx context.Context, batchID string) ([]Asset, error) {
	return r.list(ctx, `SELECT `+assetColumns+` FROM images WHERE batch_id = $1 ORDER BY created_at;`, batchID)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var asset Asset
	err := row.Scan(
		&asset.ID,
		&asset.StorageKey,
		&asset.OriginalName,
		&asset.MimeType,
		&asset.SizeBytes,
		&asset.ShortCode,
		&asset.UploaderEmail,
		&asset.BatchID,
		&asset.CreatedAt,
	)
	return asset, err
}
