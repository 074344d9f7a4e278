package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"flickr-mirror/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB connects to TEST_DATABASE_URL, migrates and empties every table.
func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, MigrateUp(db))
	_, err = db.Exec(ctx, `TRUNCATE users, remote_accounts, photos, photo_sizes, tags, photo_tags,
		photosets, photoset_photos, collections, collection_sets, response_cache, downloads CASCADE`)
	require.NoError(t, err)
	return db
}

func testAccount(t *testing.T, db *pgxpool.Pool) *models.RemoteAccount {
	t.Helper()
	ctx := context.Background()
	user := &models.User{ID: uuid.New().String(), Name: "bees", Token: "t", CreatedAt: time.Now()}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))
	account, err := NewAccountRepository(db).GetOrCreateForUser(ctx, user.ID)
	require.NoError(t, err)
	return account
}

func ptr[T any](v T) *T { return &v }

func photoFields(id string, posted time.Time) models.PhotoFields {
	return models.PhotoFields{
		FlickrID:   id,
		Server:     "6185",
		Farm:       "7",
		Secret:     "3b4ea87c09",
		Title:      "photo " + id,
		DatePosted: &posted,
		License:    "0",
		IsPublic:   ptr(true),
		Sizes: map[string]models.PhotoSize{
			"square": {Width: 75, Height: 75, Source: "s", URL: "u"},
		},
	}
}

func TestAccountRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewAccountRepository(db)
	account := testAccount(t, db)

	again, err := repo.GetOrCreateForUser(ctx, account.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
	assert.False(t, again.Linked())

	require.NoError(t, repo.SetCredential(ctx, account.ID, "tok", "sec", "read"))
	got, err := repo.GetByUserID(ctx, account.UserID)
	require.NoError(t, err)
	assert.True(t, got.Linked())
	assert.Equal(t, "read", *got.Perms)

	require.NoError(t, repo.UpdateFromRemote(ctx, account.ID, models.AccountFields{NSID: "12@N01", Username: "bees", IsPro: true}))
	got, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "bees", got.Username)
	assert.True(t, got.IsPro)

	require.NoError(t, repo.ClearCredential(ctx, account.ID))
	got, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.Linked())
	assert.Nil(t, got.Perms)

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhotoRepository_CreateUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewPhotoRepository(db)
	account := testAccount(t, db)

	f := photoFields("100", time.Unix(1314821353, 0))
	f.Location = nil
	f.OriginalFormat = "png"
	created, err := repo.Create(ctx, account.ID, f)
	require.NoError(t, err)
	assert.True(t, created.Show)

	require.NoError(t, repo.SetTags(ctx, created.ID, []string{"b", "a", "a"}))

	got, err := repo.GetByFlickrID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "photo 100", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, 75, got.Sizes["square"].Width)
	assert.Equal(t, "png", got.OriginalFormat)

	f.Title = "renamed"
	f.Sizes = map[string]models.PhotoSize{"square": {Width: 80, Height: 80}}
	n, err := repo.UpdateByFlickrID(ctx, "100", f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 80, got.Sizes["square"].Width)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	n, err = repo.UpdateByFlickrID(ctx, "missing", f)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = repo.GetByFlickrID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhotoRepository_Neighbours(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewPhotoRepository(db)
	account := testAccount(t, db)

	base := time.Unix(1314821353, 0)
	var photos []*models.Photo
	for i, id := range []string{"1", "2", "3"} {
		p, err := repo.Create(ctx, account.ID, photoFields(id, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		photos = append(photos, p)
	}

	next, err := repo.NextPublic(ctx, photos[0])
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2", next.FlickrID)

	prev, err := repo.PreviousPublic(ctx, photos[0])
	require.NoError(t, err)
	assert.Nil(t, prev)

	list, total, err := repo.ListPublic(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].FlickrID)
}

func TestPhotoSetRepository_Members(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)
	sets := NewPhotoSetRepository(db)
	account := testAccount(t, db)

	p, err := photos.Create(ctx, account.ID, photoFields("1", time.Now()))
	require.NoError(t, err)

	set, err := sets.Create(ctx, account.ID, models.PhotoSetFields{FlickrID: "s1", Title: "Set"})
	require.NoError(t, err)

	ids, err := photos.IDsByFlickrIDs(ctx, []string{"1", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": p.ID}, ids)

	require.NoError(t, sets.AddPhotos(ctx, set.ID, []int64{p.ID}))
	require.NoError(t, sets.AddPhotos(ctx, set.ID, []int64{p.ID}))
	n, err := sets.CountPhotos(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := photos.LatestInSet(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, latest.ID)

	require.NoError(t, sets.ClearPhotos(ctx, set.ID))
	n, err = sets.CountPhotos(ctx, set.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollectionRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCollectionRepository(db)
	account := testAccount(t, db)

	root, err := repo.Create(ctx, account.ID, nil, models.CollectionFields{FlickrID: "1-1", Title: "Root"})
	require.NoError(t, err)
	child, err := repo.Create(ctx, account.ID, &root.ID, models.CollectionFields{FlickrID: "1-2", Title: "Child"})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	n, err := repo.UpdateByFlickrID(ctx, "1-2", nil, models.CollectionFields{Title: "Moved"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByFlickrID(ctx, "1-2")
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, "Moved", got.Title)

	all, err := repo.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDownloadRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)
	downloads := NewDownloadRepository(db)
	account := testAccount(t, db)

	p, err := photos.Create(ctx, account.ID, photoFields("1", time.Now()))
	require.NoError(t, err)

	pending, err := downloads.Pending(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, downloads.Save(ctx, &models.DownloadRecord{PhotoID: p.ID, URL: "u", Errors: ptr("boom")}))
	pending, err = downloads.Pending(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, downloads.Save(ctx, &models.DownloadRecord{PhotoID: p.ID, URL: "u", FileKey: ptr("flickr/1.jpg"), Original: ptr(true)}))
	pending, err = downloads.Pending(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	d, err := downloads.GetByPhotoID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Errors)
	assert.Equal(t, "flickr/1.jpg", *d.FileKey)
}

func TestResponseCacheRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewResponseCacheRepository(db)

	require.NoError(t, repo.Save(ctx, &models.ResponseCache{FlickrID: "1", Info: ptr("{}")}))
	require.NoError(t, repo.Save(ctx, &models.ResponseCache{FlickrID: "1", Exception: ptr("boom")}))

	got, err := repo.GetByFlickrID(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got.Info)
	assert.Equal(t, "boom", *got.Exception)
}
