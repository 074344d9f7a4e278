package repository

import (
	"context"
	"fmt"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const collectionColumns = `
	id, account_id, parent_id, show, flickr_id, title, description, icon, date_created, last_sync`

// CollectionRepository handles database operations for collection trees
type CollectionRepository struct {
	db *pgxpool.Pool
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(db *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	err := row.Scan(
		&c.ID, &c.AccountID, &c.ParentID, &c.Show, &c.FlickrID,
		&c.Title, &c.Description, &c.Icon, &c.DateCreated, &c.LastSync,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a collection under parentID (nil for a root)
func (r *CollectionRepository) Create(ctx context.Context, accountID int64, parentID *int64, f models.CollectionFields) (*models.Collection, error) {
	query := `
		INSERT INTO collections (flickr_id, account_id, parent_id, title, description, icon, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + collectionColumns
	c, err := scanCollection(r.db.QueryRow(ctx, query,
		f.FlickrID, accountID, parentID, f.Title, f.Description, f.Icon, f.DateCreated,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return c, nil
}

// UpdateByFlickrID overwrites the remote-derived columns and parent pointer and
// returns the rows matched.
func (r *CollectionRepository) UpdateByFlickrID(ctx context.Context, flickrID string, parentID *int64, f models.CollectionFields) (int64, error) {
	query := `
		UPDATE collections SET
			parent_id = $2, title = $3, description = $4, icon = $5,
			date_created = $6, last_sync = now()
		WHERE flickr_id = $1
	`
	result, err := r.db.Exec(ctx, query, flickrID, parentID, f.Title, f.Description, f.Icon, f.DateCreated)
	if err != nil {
		return 0, fmt.Errorf("failed to update collection: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetByFlickrID retrieves a collection by remote id
func (r *CollectionRepository) GetByFlickrID(ctx context.Context, flickrID string) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE flickr_id = $1`
	c, err := scanCollection(r.db.QueryRow(ctx, query, flickrID))
	if err != nil {
		return nil, notFound(err, "collection")
	}
	return c, nil
}

// ListByAccount returns the collections of an account, parents before children
func (r *CollectionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Collection, error) {
	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE account_id = $1
		ORDER BY parent_id NULLS FIRST, id
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	collections := []*models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return collections, nil
}

// AddSets attaches photosets to a collection; existing memberships are kept
func (r *CollectionRepository) AddSets(ctx context.Context, collectionID int64, setIDs []int64) error {
	if len(setIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO collection_sets (collection_id, photoset_id)
		SELECT $1::bigint, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, collectionID, setIDs); err != nil {
		return fmt.Errorf("failed to add collection sets: %w", err)
	}
	return nil
}

// ClearSets detaches every photoset from a collection
func (r *CollectionRepository) ClearSets(ctx context.Context, collectionID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM collection_sets WHERE collection_id = $1`, collectionID); err != nil {
		return fmt.Errorf("failed to clear collection sets: %w", err)
	}
	return nil
}

// CountByAccount returns the number of collections mirrored for an account
func (r *CollectionRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM collections WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count collections: %w", err)
	}
	return n, nil
}
