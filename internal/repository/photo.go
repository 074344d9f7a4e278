package repository

import (
	"context"
	"fmt"
	"strings"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
)

// photoFieldColumns are the columns written from models.PhotoFields, in the
// order produced by photoFieldArgs.
var photoFieldColumns = []string{
	"server", "farm", "secret", "original_secret", "original_format", "title", "description",
	"date_posted", "date_taken", "date_taken_granularity", "date_updated",
	"url_page", "license", "is_public", "is_friend", "is_family",
	"exif", "exif_camera", "exif_exposure", "exif_aperture", "exif_iso", "exif_focal", "exif_flash",
	"geo_latitude", "geo_longitude", "geo_accuracy",
}

var (
	photoSelect = "p.id, p.account_id, p.show, p.flickr_id, p." +
		strings.Join(photoFieldColumns, ", p.") + ", p.last_sync"

	photoInsertQuery = fmt.Sprintf(`
		INSERT INTO photos (flickr_id, account_id, %s)
		VALUES (%s)
		RETURNING id, show, last_sync`,
		strings.Join(photoFieldColumns, ", "), placeholders(1, len(photoFieldColumns)+2))

	photoUpdateQuery = fmt.Sprintf(`
		UPDATE photos SET %s, last_sync = now()
		WHERE flickr_id = $1`,
		assignments(2, photoFieldColumns))
)

// PhotoRepository handles database operations for photos and their sizes and tags
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func photoFieldArgs(f *models.PhotoFields) []any {
	var lat, lng *float64
	if f.Location != nil {
		lon, la := f.Location.Lon(), f.Location.Lat()
		lat, lng = &la, &lon
	}
	return []any{
		f.Server, f.Farm, f.Secret, f.OriginalSecret, f.OriginalFormat, f.Title, f.Description,
		f.DatePosted, f.DateTaken, f.DateTakenGranularity, f.DateUpdated,
		f.URLPage, f.License, f.IsPublic, f.IsFriend, f.IsFamily,
		f.Exif, f.ExifCamera, f.ExifExposure, f.ExifAperture, f.ExifISO, f.ExifFocal, f.ExifFlash,
		lat, lng, f.GeoAccuracy,
	}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	var lat, lng *float64
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Show, &p.FlickrID,
		&p.Server, &p.Farm, &p.Secret, &p.OriginalSecret, &p.OriginalFormat, &p.Title, &p.Description,
		&p.DatePosted, &p.DateTaken, &p.DateTakenGranularity, &p.DateUpdated,
		&p.URLPage, &p.License, &p.IsPublic, &p.IsFriend, &p.IsFamily,
		&p.Exif, &p.ExifCamera, &p.ExifExposure, &p.ExifAperture, &p.ExifISO, &p.ExifFocal, &p.ExifFlash,
		&lat, &lng, &p.GeoAccuracy,
		&p.LastSync,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.Location = &orb.Point{*lng, *lat}
	}
	p.Sizes = map[string]models.PhotoSize{}
	p.Tags = []string{}
	return &p, nil
}

// Create inserts a photo and its sizes
func (r *PhotoRepository) Create(ctx context.Context, accountID int64, f models.PhotoFields) (*models.Photo, error) {
	photo := &models.Photo{AccountID: accountID, PhotoFields: f, Tags: []string{}}
	if photo.Sizes == nil {
		photo.Sizes = map[string]models.PhotoSize{}
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		args := append([]any{f.FlickrID, accountID}, photoFieldArgs(&f)...)
		if err := tx.QueryRow(ctx, photoInsertQuery, args...).Scan(&photo.ID, &photo.Show, &photo.LastSync); err != nil {
			return err
		}
		return upsertSizes(ctx, tx, photo.ID, f.Sizes)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}
	return photo, nil
}

// UpdateByFlickrID overwrites the remote-derived columns of the photo with the
// given remote id and returns the number of rows matched.
func (r *PhotoRepository) UpdateByFlickrID(ctx context.Context, flickrID string, f models.PhotoFields) (int64, error) {
	args := append([]any{flickrID}, photoFieldArgs(&f)...)
	result, err := r.db.Exec(ctx, photoUpdateQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update photo: %w", err)
	}
	if result.RowsAffected() == 0 || len(f.Sizes) == 0 {
		return result.RowsAffected(), nil
	}

	var id int64
	if err := r.db.QueryRow(ctx, `SELECT id FROM photos WHERE flickr_id = $1`, flickrID).Scan(&id); err != nil {
		return 0, notFound(err, "photo")
	}
	if err := upsertSizes(ctx, r.db, id, f.Sizes); err != nil {
		return 0, fmt.Errorf("failed to update photo sizes: %w", err)
	}
	return result.RowsAffected(), nil
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func upsertSizes(ctx context.Context, db batchSender, photoID int64, sizes map[string]models.PhotoSize) error {
	if len(sizes) == 0 {
		return nil
	}
	query := `
		INSERT INTO photo_sizes (photo_id, label, width, height, source, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (photo_id, label) DO UPDATE SET
			width = EXCLUDED.width, height = EXCLUDED.height,
			source = EXCLUDED.source, url = EXCLUDED.url
	`
	batch := &pgx.Batch{}
	for label, s := range sizes {
		batch.Queue(query, photoID, label, s.Width, s.Height, s.Source, s.URL)
	}
	return db.SendBatch(ctx, batch).Close()
}

// GetByFlickrID retrieves a photo with its sizes and tags by remote id
func (r *PhotoRepository) GetByFlickrID(ctx context.Context, flickrID string) (*models.Photo, error) {
	return r.getOne(ctx, `SELECT `+photoSelect+` FROM photos p WHERE p.flickr_id = $1`, flickrID)
}

// GetByID retrieves a photo with its sizes and tags by primary key
func (r *PhotoRepository) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	return r.getOne(ctx, `SELECT `+photoSelect+` FROM photos p WHERE p.id = $1`, id)
}

func (r *PhotoRepository) getOne(ctx context.Context, query string, args ...any) (*models.Photo, error) {
	photo, err := scanPhoto(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "photo")
	}
	if err := r.loadRelations(ctx, []*models.Photo{photo}); err != nil {
		return nil, err
	}
	return photo, nil
}

// IDsByFlickrIDs maps the mirrored remote ids among the given ones to primary keys
func (r *PhotoRepository) IDsByFlickrIDs(ctx context.Context, flickrIDs []string) (map[string]int64, error) {
	return idsByFlickrIDs(ctx, r.db, "photos", flickrIDs)
}

// SetTags replaces the tag set of a photo
func (r *PhotoRepository) SetTags(ctx context.Context, photoID int64, tags []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM photo_tags WHERE photo_id = $1`, photoID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	query := `
		WITH names AS (SELECT DISTINCT unnest($2::text[]) AS name),
		inserted AS (
			INSERT INTO tags (name) SELECT name FROM names
			ON CONFLICT (name) DO NOTHING
			RETURNING id
		)
		INSERT INTO photo_tags (photo_id, tag_id)
		SELECT $1::bigint, id FROM inserted
		UNION
		SELECT $1::bigint, t.id FROM tags t JOIN names n ON n.name = t.name
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, photoID, tags); err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}
	return nil
}

// ListPublic returns visible public photos, newest first, with the total count
func (r *PhotoRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Photo, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos p WHERE p.show AND p.is_public`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count photos: %w", err)
	}

	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		WHERE p.show AND p.is_public
		ORDER BY p.date_posted DESC NULLS LAST, p.date_taken DESC NULLS LAST, p.id DESC
		LIMIT $1 OFFSET $2
	`
	photos, err := r.list(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// ListPublicInSet returns the visible public members of a photoset, newest first
func (r *PhotoRepository) ListPublicInSet(ctx context.Context, setID int64, limit, offset int) ([]*models.Photo, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM photos p
		JOIN photoset_photos sp ON sp.photo_id = p.id
		WHERE sp.photoset_id = $1 AND p.show AND p.is_public
	`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, setID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count photos: %w", err)
	}

	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		JOIN photoset_photos sp ON sp.photo_id = p.id
		WHERE sp.photoset_id = $1 AND p.show AND p.is_public
		ORDER BY p.date_posted DESC NULLS LAST, p.date_taken DESC NULLS LAST, p.id DESC
		LIMIT $2 OFFSET $3
	`
	photos, err := r.list(ctx, query, setID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// LatestInSet returns the most recently posted visible member of a photoset
func (r *PhotoRepository) LatestInSet(ctx context.Context, setID int64) (*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		JOIN photoset_photos sp ON sp.photo_id = p.id
		WHERE sp.photoset_id = $1 AND p.show
		ORDER BY p.date_posted DESC NULLS LAST, p.id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, setID)
}

// NextPublic returns the public photo posted right after p
func (r *PhotoRepository) NextPublic(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		WHERE p.show AND p.is_public AND (p.date_posted, p.id) > ($1, $2)
		ORDER BY p.date_posted, p.id
		LIMIT 1
	`
	return r.neighbour(ctx, query, p.DatePosted, p.ID)
}

// PreviousPublic returns the public photo posted right before p
func (r *PhotoRepository) PreviousPublic(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		WHERE p.show AND p.is_public AND (p.date_posted, p.id) < ($1, $2)
		ORDER BY p.date_posted DESC, p.id DESC
		LIMIT 1
	`
	return r.neighbour(ctx, query, p.DatePosted, p.ID)
}

// NextInSet returns the visible member of a set posted right after p
func (r *PhotoRepository) NextInSet(ctx context.Context, setID int64, p *models.Photo) (*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		JOIN photoset_photos sp ON sp.photo_id = p.id
		WHERE sp.photoset_id = $3 AND p.show AND (p.date_posted, p.id) > ($1, $2)
		ORDER BY p.date_posted, p.id
		LIMIT 1
	`
	return r.neighbour(ctx, query, p.DatePosted, p.ID, setID)
}

// PreviousInSet returns the visible member of a set posted right before p
func (r *PhotoRepository) PreviousInSet(ctx context.Context, setID int64, p *models.Photo) (*models.Photo, error) {
	query := `
		SELECT ` + photoSelect + `
		FROM photos p
		JOIN photoset_photos sp ON sp.photo_id = p.id
		WHERE sp.photoset_id = $3 AND p.show AND (p.date_posted, p.id) < ($1, $2)
		ORDER BY p.date_posted DESC, p.id DESC
		LIMIT 1
	`
	return r.neighbour(ctx, query, p.DatePosted, p.ID, setID)
}

// neighbour returns nil, nil only when no row matches
func (r *PhotoRepository) neighbour(ctx context.Context, query string, args ...any) (*models.Photo, error) {
	photo, err := r.getOne(ctx, query, args...)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return photo, nil
}

// CountByAccount returns the number of photos mirrored for an account
func (r *PhotoRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return n, nil
}

func (r *PhotoRepository) list(ctx context.Context, query string, args ...any) ([]*models.Photo, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	if err := r.loadRelations(ctx, photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// loadRelations fills Sizes and Tags for the given photos
func (r *PhotoRepository) loadRelations(ctx context.Context, photos []*models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Photo, len(photos))
	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT photo_id, label, width, height, source, url
		FROM photo_sizes WHERE photo_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get photo sizes: %w", err)
	}
	for rows.Next() {
		var photoID int64
		var label string
		var s models.PhotoSize
		if err := rows.Scan(&photoID, &label, &s.Width, &s.Height, &s.Source, &s.URL); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan photo size: %w", err)
		}
		byID[photoID].Sizes[label] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating photo sizes: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT pt.photo_id, t.name
		FROM photo_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.photo_id = ANY($1)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get photo tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var photoID int64
		var name string
		if err := rows.Scan(&photoID, &name); err != nil {
			return fmt.Errorf("failed to scan photo tag: %w", err)
		}
		byID[photoID].Tags = append(byID[photoID].Tags, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating photo tags: %w", err)
	}
	return nil
}
