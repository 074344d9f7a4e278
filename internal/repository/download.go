package repository

import (
	"context"
	"fmt"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DownloadRepository tracks which photo binaries were copied to blob storage
type DownloadRepository struct {
	db    *pgxpool.Pool
	photo *PhotoRepository
}

// NewDownloadRepository creates a new download repository
func NewDownloadRepository(db *pgxpool.Pool) *DownloadRepository {
	return &DownloadRepository{db: db, photo: NewPhotoRepository(db)}
}

// Pending returns photos of an account without a successful download, oldest first
func (r *DownloadRepository) Pending(ctx context.Context, accountID int64, limit int) ([]*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		LEFT JOIN downloads d ON d.photo_id = p.id
		WHERE p.account_id = $1 AND (d.id IS NULL OR d.file_key IS NULL)
		ORDER BY p.date_posted NULLS LAST, p.id
		LIMIT $2
	`
	return r.photo.list(ctx, query, accountID, limit)
}

// Save upserts the download record of a photo
func (r *DownloadRepository) Save(ctx context.Context, d *models.DownloadRecord) error {
	query := `
		INSERT INTO downloads (photo_id, url, file_key, original, errors, date_downloaded)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (photo_id) DO UPDATE SET
			url = EXCLUDED.url, file_key = EXCLUDED.file_key, original = EXCLUDED.original,
			errors = EXCLUDED.errors, date_downloaded = EXCLUDED.date_downloaded
		RETURNING id, date_downloaded
	`
	err := r.db.QueryRow(ctx, query, d.PhotoID, d.URL, d.FileKey, d.Original, d.Errors).Scan(&d.ID, &d.DateDownloaded)
	if err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}
	return nil
}

// GetByPhotoID retrieves the download record of a photo
func (r *DownloadRepository) GetByPhotoID(ctx context.Context, photoID int64) (*models.DownloadRecord, error) {
	query := `
		SELECT id, photo_id, url, file_key, original, errors, date_downloaded
		FROM downloads
		WHERE photo_id = $1
	`
	var d models.DownloadRecord
	err := r.db.QueryRow(ctx, query, photoID).Scan(
		&d.ID, &d.PhotoID, &d.URL, &d.FileKey, &d.Original, &d.Errors, &d.DateDownloaded,
	)
	if err != nil {
		return nil, notFound(err, "download")
	}
	return &d, nil
}
