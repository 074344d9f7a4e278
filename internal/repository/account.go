package repository

import (
	"context"
	"fmt"

	"flickr-mirror/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `
	id, user_id, flickr_id, nsid, username, realname, photos_url, profile_url,
	mobile_url, icon_server, icon_farm, path_alias, is_pro, tz_offset,
	token, token_secret, perms, last_sync`

// AccountRepository handles database operations for linked Flickr accounts
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*models.RemoteAccount, error) {
	var a models.RemoteAccount
	err := row.Scan(
		&a.ID, &a.UserID, &a.FlickrID, &a.NSID, &a.Username, &a.Realname,
		&a.PhotosURL, &a.ProfileURL, &a.MobileURL, &a.IconServer, &a.IconFarm,
		&a.PathAlias, &a.IsPro, &a.TZOffset,
		&a.Token, &a.TokenSecret, &a.Perms, &a.LastSync,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by its primary key
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.RemoteAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM remote_accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "account")
	}
	return a, nil
}

// GetByUserID retrieves the account owned by a local user
func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*models.RemoteAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM remote_accounts WHERE user_id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, "account")
	}
	return a, nil
}

// GetOrCreateForUser returns the user's account, creating an empty one if needed
func (r *AccountRepository) GetOrCreateForUser(ctx context.Context, userID string) (*models.RemoteAccount, error) {
	query := `
		INSERT INTO remote_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create account: %w", err)
	}
	return a, nil
}

// List returns every account, linked or not
func (r *AccountRepository) List(ctx context.Context) ([]*models.RemoteAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM remote_accounts ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.RemoteAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateFromRemote overwrites the profile fields and stamps last_sync
func (r *AccountRepository) UpdateFromRemote(ctx context.Context, id int64, f models.AccountFields) error {
	query := `
		UPDATE remote_accounts SET
			flickr_id = $2, nsid = $3, username = $4, realname = $5, photos_url = $6,
			profile_url = $7, mobile_url = $8, icon_server = $9, icon_farm = $10,
			path_alias = $11, is_pro = $12, tz_offset = $13, last_sync = now()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id,
		f.FlickrID, f.NSID, f.Username, f.Realname, f.PhotosURL,
		f.ProfileURL, f.MobileURL, f.IconServer, f.IconFarm,
		f.PathAlias, f.IsPro, f.TZOffset,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %w", ErrNotFound)
	}
	return nil
}

// SetCredential stores the access token granted for the account
func (r *AccountRepository) SetCredential(ctx context.Context, id int64, token, secret, perms string) error {
	query := `UPDATE remote_accounts SET token = $2, token_secret = $3, perms = $4 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, token, secret, perms)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %w", ErrNotFound)
	}
	return nil
}

// ClearCredential forgets the stored access token
func (r *AccountRepository) ClearCredential(ctx context.Context, id int64) error {
	query := `UPDATE remote_accounts SET token = NULL, token_secret = NULL, perms = NULL WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
