package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
)

// RemoteAPI calls Flickr REST methods and returns the raw response body
type RemoteAPI interface {
	Raw(ctx context.Context, cred *flickr.Credential, method string, params map[string]string) (json.RawMessage, error)
}

// OAuthFlow performs the three-legged OAuth1 handshake
type OAuthFlow interface {
	RequestToken(callbackURL string) (token, secret string, err error)
	AuthorizationURL(requestToken, perms string) (string, error)
	AccessToken(requestToken, requestSecret, verifier string) (*flickr.Credential, error)
}

// Fetcher downloads a binary by URL
type Fetcher interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// UserStore persists local users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AccountStore persists linked Flickr accounts
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*models.RemoteAccount, error)
	GetByUserID(ctx context.Context, userID string) (*models.RemoteAccount, error)
	GetOrCreateForUser(ctx context.Context, userID string) (*models.RemoteAccount, error)
	List(ctx context.Context) ([]*models.RemoteAccount, error)
	UpdateFromRemote(ctx context.Context, id int64, f models.AccountFields) error
	SetCredential(ctx context.Context, id int64, token, secret, perms string) error
	ClearCredential(ctx context.Context, id int64) error
}

// PhotoStore persists photos with their sizes and tags
type PhotoStore interface {
	Create(ctx context.Context, accountID int64, f models.PhotoFields) (*models.Photo, error)
	UpdateByFlickrID(ctx context.Context, flickrID string, f models.PhotoFields) (int64, error)
	GetByFlickrID(ctx context.Context, flickrID string) (*models.Photo, error)
	GetByID(ctx context.Context, id int64) (*models.Photo, error)
	IDsByFlickrIDs(ctx context.Context, flickrIDs []string) (map[string]int64, error)
	SetTags(ctx context.Context, photoID int64, tags []string) error

	ListPublic(ctx context.Context, limit, offset int) ([]*models.Photo, int, error)
	ListPublicInSet(ctx context.Context, setID int64, limit, offset int) ([]*models.Photo, int, error)
	LatestInSet(ctx context.Context, setID int64) (*models.Photo, error)
	NextPublic(ctx context.Context, p *models.Photo) (*models.Photo, error)
	PreviousPublic(ctx context.Context, p *models.Photo) (*models.Photo, error)
	NextInSet(ctx context.Context, setID int64, p *models.Photo) (*models.Photo, error)
	PreviousInSet(ctx context.Context, setID int64, p *models.Photo) (*models.Photo, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// PhotoSetStore persists photosets and their membership
type PhotoSetStore interface {
	Create(ctx context.Context, accountID int64, f models.PhotoSetFields) (*models.PhotoSet, error)
	UpdateByFlickrID(ctx context.Context, flickrID string, f models.PhotoSetFields) (int64, error)
	GetByFlickrID(ctx context.Context, flickrID string) (*models.PhotoSet, error)
	IDsByFlickrIDs(ctx context.Context, flickrIDs []string) (map[string]int64, error)
	ListVisible(ctx context.Context) ([]*models.PhotoSet, error)
	AddPhotos(ctx context.Context, setID int64, photoIDs []int64) error
	ClearPhotos(ctx context.Context, setID int64) error
	CountPhotos(ctx context.Context, setID int64) (int, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// CollectionStore persists collection trees and their set membership
type CollectionStore interface {
	Create(ctx context.Context, accountID int64, parentID *int64, f models.CollectionFields) (*models.Collection, error)
	UpdateByFlickrID(ctx context.Context, flickrID string, parentID *int64, f models.CollectionFields) (int64, error)
	GetByFlickrID(ctx context.Context, flickrID string) (*models.Collection, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*models.Collection, error)
	AddSets(ctx context.Context, collectionID int64, setIDs []int64) error
	ClearSets(ctx context.Context, collectionID int64) error
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// ResponseCacheStore keeps the raw payloads of photo fetches
type ResponseCacheStore interface {
	Save(ctx context.Context, c *models.ResponseCache) error
}

// DownloadStore tracks binaries copied to blob storage
type DownloadStore interface {
	Pending(ctx context.Context, accountID int64, limit int) ([]*models.Photo, error)
	Save(ctx context.Context, d *models.DownloadRecord) error
}

// PendingAuthStore keeps request tokens between redirect and callback
type PendingAuthStore interface {
	Save(ctx context.Context, p models.PendingAuthorization, ttl time.Duration) error
	Take(ctx context.Context, requestToken string) (*models.PendingAuthorization, error)
}

// BlobStore is where downloaded binaries are written
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Notifier receives progress events addressed to a local user
type Notifier interface {
	Notify(userID string, msg WSMessage)
}

// Stores groups the persistence collaborators of the services
type Stores struct {
	Users       UserStore
	Accounts    AccountStore
	Photos      PhotoStore
	PhotoSets   PhotoSetStore
	Collections CollectionStore
	Cache       ResponseCacheStore
	Downloads   DownloadStore
	Pending     PendingAuthStore
}
