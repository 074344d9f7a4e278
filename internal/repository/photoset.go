package repository

import (
	"context"
	"fmt"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const photoSetColumns = `
	id, account_id, show, flickr_id, server, farm, secret, title, description,
	primary_photo, date_posted, date_updated, last_sync`

// PhotoSetRepository handles database operations for photosets and their members
type PhotoSetRepository struct {
	db *pgxpool.Pool
}

// NewPhotoSetRepository creates a new photoset repository
func NewPhotoSetRepository(db *pgxpool.Pool) *PhotoSetRepository {
	return &PhotoSetRepository{db: db}
}

func scanPhotoSet(row pgx.Row) (*models.PhotoSet, error) {
	var s models.PhotoSet
	err := row.Scan(
		&s.ID, &s.AccountID, &s.Show, &s.FlickrID, &s.Server, &s.Farm, &s.Secret,
		&s.Title, &s.Description, &s.PrimaryPhoto, &s.DatePosted, &s.DateUpdated, &s.LastSync,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a photoset
func (r *PhotoSetRepository) Create(ctx context.Context, accountID int64, f models.PhotoSetFields) (*models.PhotoSet, error) {
	query := `
		INSERT INTO photosets (flickr_id, account_id, server, farm, secret, title,
			description, primary_photo, date_posted, date_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + photoSetColumns
	set, err := scanPhotoSet(r.db.QueryRow(ctx, query,
		f.FlickrID, accountID, f.Server, f.Farm, f.Secret, f.Title,
		f.Description, f.PrimaryPhoto, f.DatePosted, f.DateUpdated,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create photoset: %w", err)
	}
	return set, nil
}

// UpdateByFlickrID overwrites the remote-derived columns and returns the rows matched
func (r *PhotoSetRepository) UpdateByFlickrID(ctx context.Context, flickrID string, f models.PhotoSetFields) (int64, error) {
	query := `
		UPDATE photosets SET
			server = $2, farm = $3, secret = $4, title = $5, description = $6,
			primary_photo = $7, date_posted = $8, date_updated = $9, last_sync = now()
		WHERE flickr_id = $1
	`
	result, err := r.db.Exec(ctx, query, flickrID,
		f.Server, f.Farm, f.Secret, f.Title, f.Description,
		f.PrimaryPhoto, f.DatePosted, f.DateUpdated,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update photoset: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetByFlickrID retrieves a photoset by remote id
func (r *PhotoSetRepository) GetByFlickrID(ctx context.Context, flickrID string) (*models.PhotoSet, error) {
	query := `SELECT ` + photoSetColumns + ` FROM photosets WHERE flickr_id = $1`
	set, err := scanPhotoSet(r.db.QueryRow(ctx, query, flickrID))
	if err != nil {
		return nil, notFound(err, "photoset")
	}
	return set, nil
}

// IDsByFlickrIDs maps the mirrored remote ids among the given ones to primary keys
func (r *PhotoSetRepository) IDsByFlickrIDs(ctx context.Context, flickrIDs []string) (map[string]int64, error) {
	return idsByFlickrIDs(ctx, r.db, "photosets", flickrIDs)
}

// ListVisible returns every visible photoset, most recently created first
func (r *PhotoSetRepository) ListVisible(ctx context.Context) ([]*models.PhotoSet, error) {
	query := `
		SELECT ` + photoSetColumns + `
		FROM photosets
		WHERE show
		ORDER BY date_posted DESC NULLS LAST, id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list photosets: %w", err)
	}
	defer rows.Close()

	sets := []*models.PhotoSet{}
	for rows.Next() {
		set, err := scanPhotoSet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photoset: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photosets: %w", err)
	}
	return sets, nil
}

// AddPhotos attaches photos to a photoset; existing memberships are kept
func (r *PhotoSetRepository) AddPhotos(ctx context.Context, setID int64, photoIDs []int64) error {
	if len(photoIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO photoset_photos (photoset_id, photo_id)
		SELECT $1::bigint, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, setID, photoIDs); err != nil {
		return fmt.Errorf("failed to add photoset members: %w", err)
	}
	return nil
}

// ClearPhotos detaches every photo from a photoset
func (r *PhotoSetRepository) ClearPhotos(ctx context.Context, setID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM photoset_photos WHERE photoset_id = $1`, setID); err != nil {
		return fmt.Errorf("failed to clear photoset members: %w", err)
	}
	return nil
}

// CountPhotos returns the number of members of a photoset
func (r *PhotoSetRepository) CountPhotos(ctx context.Context, setID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photoset_photos WHERE photoset_id = $1`, setID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count photoset members: %w", err)
	}
	return n, nil
}

// CountByAccount returns the number of photosets mirrored for an account
func (r *PhotoSetRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photosets WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count photosets: %w", err)
	}
	return n, nil
}
