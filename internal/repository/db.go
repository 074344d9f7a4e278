package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Connect opens a pgx pool with SQL tracing enabled
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.ConnConfig.Tracer = newTracer()

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// notFound maps pgx.ErrNoRows to ErrNotFound, wrapping anything else
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// placeholders returns "$from, ..., $(from+n-1)"
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// assignments returns "col = $from, ..." for an UPDATE statement
func assignments(from int, columns []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s = $%d", col, from+i)
	}
	return strings.Join(parts, ", ")
}

// idsByFlickrIDs maps remote ids present in table to their primary keys
func idsByFlickrIDs(ctx context.Context, db *pgxpool.Pool, table string, flickrIDs []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(flickrIDs))
	if len(flickrIDs) == 0 {
		return ids, nil
	}
	rows, err := db.Query(ctx, `SELECT flickr_id, id FROM `+table+` WHERE flickr_id = ANY($1)`, flickrIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s ids: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var flickrID string
		var id int64
		if err := rows.Scan(&flickrID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		ids[flickrID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s ids: %w", table, err)
	}
	return ids, nil
}
