package repository

import (
	"context"
	"fmt"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseCacheRepository stores raw Flickr payloads per photo
type ResponseCacheRepository struct {
	db *pgxpool.Pool
}

// NewResponseCacheRepository creates a new response cache repository
func NewResponseCacheRepository(db *pgxpool.Pool) *ResponseCacheRepository {
	return &ResponseCacheRepository{db: db}
}

// Save writes the payloads of one photo fetch, replacing any previous entry
func (r *ResponseCacheRepository) Save(ctx context.Context, c *models.ResponseCache) error {
	query := `
		INSERT INTO response_cache (flickr_id, info, sizes, exif, geo, exception, added)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (flickr_id) DO UPDATE SET
			info = EXCLUDED.info, sizes = EXCLUDED.sizes, exif = EXCLUDED.exif,
			geo = EXCLUDED.geo, exception = EXCLUDED.exception, added = EXCLUDED.added
		RETURNING id, added
	`
	err := r.db.QueryRow(ctx, query, c.FlickrID, c.Info, c.Sizes, c.Exif, c.Geo, c.Exception).Scan(&c.ID, &c.Added)
	if err != nil {
		return fmt.Errorf("failed to save response cache: %w", err)
	}
	return nil
}

// GetByFlickrID retrieves the cached payloads of a photo
func (r *ResponseCacheRepository) GetByFlickrID(ctx context.Context, flickrID string) (*models.ResponseCache, error) {
	query := `
		SELECT id, flickr_id, info, sizes, exif, geo, exception, added
		FROM response_cache
		WHERE flickr_id = $1
	`
	var c models.ResponseCache
	err := r.db.QueryRow(ctx, query, flickrID).Scan(
		&c.ID, &c.FlickrID, &c.Info, &c.Sizes, &c.Exif, &c.Geo, &c.Exception, &c.Added,
	)
	if err != nil {
		return nil, notFound(err, "response cache")
	}
	return &c, nil
}
