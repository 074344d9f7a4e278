package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/importer"
	"flickr-mirror/internal/repository"
	"flickr-mirror/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullPayload(id string, tags ...string) importer.PhotoPayload {
	return importer.PhotoPayload{
		Info:  testutil.PhotoInfo(id, "Photo "+id, tags...),
		Sizes: testutil.Sizes,
		Exif:  testutil.Exif,
		Geo:   testutil.Geo,
	}
}

func TestCreatePhoto_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	created, err := svc.CreatePhoto(ctx, account, fullPayload("6110054503", "bees", "macro"))
	require.NoError(t, err)

	photo, err := db.Photos().GetByFlickrID(ctx, "6110054503")
	require.NoError(t, err)
	assert.Equal(t, created.ID, photo.ID)
	assert.Equal(t, account.ID, photo.AccountID)
	assert.Equal(t, "Photo 6110054503", photo.Title)
	assert.Equal(t, "6a1e4e6a3c", photo.OriginalSecret)
	assert.Equal(t, "http://www.flickr.com/photos/bees/6110054503/", photo.URLPage)
	require.NotNil(t, photo.DatePosted)
	assert.Equal(t, int64(testutil.PhotoPosted), photo.DatePosted.Unix())
	require.NotNil(t, photo.IsPublic)
	assert.True(t, *photo.IsPublic)
	assert.ElementsMatch(t, []string{"bees", "macro"}, photo.Tags)

	large, ok := photo.Size("large")
	require.True(t, ok)
	assert.Equal(t, 1024, large.Width)
	assert.Equal(t, "https://farm7.staticflickr.com/6185/6110054503_3b4ea87c09_b.jpg", large.Source)
	_, ok = photo.Size("ori")
	assert.True(t, ok)

	require.NotNil(t, photo.Location)
	assert.InDelta(t, 41.387917, photo.Location.Lat(), 1e-6)
	assert.InDelta(t, 2.169919, photo.Location.Lon(), 1e-6)
	assert.NotNil(t, photo.ExifAperture)
}

func TestCreatePhoto_Duplicate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	_, err := svc.CreatePhoto(ctx, account, fullPayload("1"))
	require.NoError(t, err)
	_, err = svc.CreatePhoto(ctx, account, fullPayload("1"))
	assert.Error(t, err)
}

func TestUpdatePhoto(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	_, err := svc.CreatePhoto(ctx, account, fullPayload("1", "old"))
	require.NoError(t, err)

	t.Run("keeps tags", func(t *testing.T) {
		payload := importer.PhotoPayload{Info: testutil.PhotoInfo("1", "Renamed", "new")}
		n, err := svc.UpdatePhoto(ctx, "1", payload, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		photo, err := db.Photos().GetByFlickrID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", photo.Title)
		assert.Equal(t, []string{"old"}, photo.Tags)
		_, ok := photo.Size("large")
		assert.True(t, ok, "sizes missing from the payload are kept")
	})

	t.Run("replaces tags", func(t *testing.T) {
		payload := importer.PhotoPayload{Info: testutil.PhotoInfo("1", "Again", "new", "other")}
		n, err := svc.UpdatePhoto(ctx, "1", payload, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		photo, err := db.Photos().GetByFlickrID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "other"}, photo.Tags)
	})

	t.Run("unknown photo", func(t *testing.T) {
		n, err := svc.UpdatePhoto(ctx, "404", fullPayload("404"), true)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		_, err = db.Photos().GetByFlickrID(ctx, "404")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("missing info", func(t *testing.T) {
		_, err := svc.UpdatePhoto(ctx, "1", importer.PhotoPayload{}, true)
		assert.Error(t, err)
	})
}

func TestPhotoSet_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	for _, id := range []string{"1", "2", "3"} {
		_, err := svc.CreatePhoto(ctx, account, fullPayload(id))
		require.NoError(t, err)
	}

	payload := PhotoSetPayload{
		Info:   testutil.PhotoSetInfo("100", "Barcelona", "1"),
		Photos: []json.RawMessage{testutil.PhotoSetPhotos("100", "1", "2", "999")},
	}
	set, err := svc.CreatePhotoSet(ctx, account, payload)
	require.NoError(t, err)
	assert.Equal(t, "Barcelona", set.Title)
	assert.Equal(t, "1", set.PrimaryPhoto)
	assert.Equal(t, []string{"1", "2"}, db.PhotoSets().Members(set.ID))

	t.Run("without photos keeps membership", func(t *testing.T) {
		payload := PhotoSetPayload{
			Info:   testutil.PhotoSetInfo("100", "Renamed", "1"),
			Photos: []json.RawMessage{testutil.PhotoSetPhotos("100", "3")},
		}
		n, err := svc.UpdatePhotoSet(ctx, "100", payload, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := db.PhotoSets().GetByFlickrID(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, []string{"1", "2"}, db.PhotoSets().Members(set.ID))
	})

	t.Run("with photos replaces membership", func(t *testing.T) {
		payload := PhotoSetPayload{
			Info: testutil.PhotoSetInfo("100", "Renamed", "1"),
			Photos: []json.RawMessage{
				testutil.PhotoSetPhotos("100", "3"),
				testutil.PhotoSetPhotos("100", "2"),
			},
		}
		n, err := svc.UpdatePhotoSet(ctx, "100", payload, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, []string{"2", "3"}, db.PhotoSets().Members(set.ID))
	})

	t.Run("unknown set", func(t *testing.T) {
		n, err := svc.UpdatePhotoSet(ctx, "200", PhotoSetPayload{Info: testutil.PhotoSetInfo("200", "x", "")}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestPhotoSet_UnknownPhotosOnly(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	set, err := svc.CreatePhotoSet(ctx, account, PhotoSetPayload{
		Info:   testutil.PhotoSetInfo("100", "Empty", "42"),
		Photos: []json.RawMessage{testutil.PhotoSetPhotos("100", "42")},
	})
	require.NoError(t, err)

	n, err := db.PhotoSets().CountPhotos(ctx, set.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollectionTree(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)

	_, err := svc.CreatePhotoSet(ctx, account, PhotoSetPayload{Info: testutil.PhotoSetInfo("72157600000000101", "Barcelona", "")})
	require.NoError(t, err)

	countTree := func() (total, withParent int) {
		collections, err := db.Collections().ListByAccount(ctx, account.ID)
		require.NoError(t, err)
		for _, c := range collections {
			if c.ParentID != nil {
				withParent++
			}
		}
		return len(collections), withParent
	}

	written, err := svc.CreateCollectionTree(ctx, account, testutil.CollectionTree)
	require.NoError(t, err)
	assert.Len(t, written, 9)
	total, withParent := countTree()
	assert.Equal(t, 9, total)
	assert.Equal(t, 6, withParent)

	spain, err := db.Collections().GetByFlickrID(ctx, "12-72157600000000003")
	require.NoError(t, err)
	europe, err := db.Collections().GetByFlickrID(ctx, "12-72157600000000002")
	require.NoError(t, err)
	require.NotNil(t, spain.ParentID)
	assert.Equal(t, europe.ID, *spain.ParentID)
	assert.Equal(t, []string{"72157600000000101"}, db.Collections().Sets(spain.ID))

	birthdays, err := db.Collections().GetByFlickrID(ctx, "12-72157600000000006")
	require.NoError(t, err)
	assert.Equal(t, []string{"72157600000000101"}, db.Collections().Sets(birthdays.ID), "unknown sets are skipped")

	t.Run("create twice fails", func(t *testing.T) {
		_, err := svc.CreateCollectionTree(ctx, account, testutil.CollectionTree)
		assert.Error(t, err)
	})

	t.Run("create or update is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			written, err := svc.CreateOrUpdateCollectionTree(ctx, account, testutil.CollectionTree)
			require.NoError(t, err)
			assert.Len(t, written, 9)
		}
		total, withParent := countTree()
		assert.Equal(t, 9, total)
		assert.Equal(t, 6, withParent)
		assert.Equal(t, []string{"72157600000000101"}, db.Collections().Sets(spain.ID))
	})
}

func fakeLibrary() *testutil.FakeFlickr {
	api := testutil.NewFakeFlickr()
	api.Respond("flickr.people.getInfo", testutil.Person)
	api.Respond("flickr.people.getPhotos", testutil.PeoplePhotos("1", "2", "3"))
	api.Handle("flickr.photos.getInfo", func(_ *flickr.Credential, params map[string]string) (json.RawMessage, error) {
		id := params["photo_id"]
		if id == "3" {
			return nil, &flickr.APIError{Method: "flickr.photos.getInfo", Code: 1, Message: "Photo not found"}
		}
		return testutil.PhotoInfo(id, "Photo "+id, "tag"+id), nil
	})
	api.Respond("flickr.photos.getSizes", testutil.Sizes)
	api.Respond("flickr.photos.getExif", testutil.Exif)
	api.Fail("flickr.photos.geo.getLocation", 2, "Photo has no location information")
	api.Respond("flickr.photosets.getList", testutil.PhotoSetList(testutil.PhotoSetInfo("72157600000000101", "Barcelona", "1")))
	api.Handle("flickr.photosets.getPhotos", func(_ *flickr.Credential, params map[string]string) (json.RawMessage, error) {
		return testutil.PhotoSetPhotos(params["photoset_id"], "1", "2", "3"), nil
	})
	api.Respond("flickr.collections.getTree", testutil.CollectionTree)
	return api
}

func TestSyncAccount(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	api := fakeLibrary()
	events := &recorder{}
	svc := NewSyncService(api, memStores(db), events, 0)

	result, err := svc.SyncAccount(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Photos: 2, PhotoErrors: 1, PhotoSets: 1, Collections: 9}, result)

	for _, call := range api.Calls("") {
		require.NotNil(t, call.Cred, call.Method)
		assert.Equal(t, "token", call.Cred.Token)
	}

	stored, err := db.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cal Henderson", stored.Realname)
	assert.True(t, stored.IsPro)

	n, err := db.Photos().CountByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	photo, err := db.Photos().GetByFlickrID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag2"}, photo.Tags)
	assert.Nil(t, photo.Location)

	set, err := db.PhotoSets().GetByFlickrID(ctx, "72157600000000101")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, db.PhotoSets().Members(set.ID))

	cached := db.Cache().Get("3")
	require.NotNil(t, cached)
	require.NotNil(t, cached.Exception)
	assert.Contains(t, *cached.Exception, "Photo not found")
	cached = db.Cache().Get("1")
	require.NotNil(t, cached)
	assert.Nil(t, cached.Exception)
	assert.NotNil(t, cached.Exif)
	assert.Nil(t, cached.Geo)

	types := events.types()
	require.NotEmpty(t, types)
	assert.Equal(t, EventSyncStarted, types[0])
	assert.Equal(t, EventSyncFinished, types[len(types)-1])
	assert.Contains(t, types, EventSyncProgress)

	t.Run("second pass is idempotent", func(t *testing.T) {
		result, err := svc.SyncAccount(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Photos)

		n, err := db.Photos().CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = db.PhotoSets().CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = db.Collections().CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, n)
	})
}

func TestSyncAccount_NotLinked(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account, err := db.Accounts().GetOrCreateForUser(ctx, "u1")
	require.NoError(t, err)

	svc := NewSyncService(testutil.NewFakeFlickr(), memStores(db), nil, 0)
	_, err = svc.SyncAccount(ctx, account)
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestSyncAccount_ProfileFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	api := fakeLibrary()
	api.Fail("flickr.people.getInfo", 98, "Invalid auth token")
	events := &recorder{}

	svc := NewSyncService(api, memStores(db), events, 0)
	_, err := svc.SyncAccount(ctx, account)

	var apiErr *flickr.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 98, apiErr.Code)
	assert.Equal(t, []string{EventSyncStarted, EventSyncFailed}, events.types())
	assert.Empty(t, api.Calls("flickr.people.getPhotos"))
}

func TestSyncAccount_Paging(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemDB()
	account := linkedAccount(t, db, "u1")
	api := fakeLibrary()
	api.Handle("flickr.people.getPhotos", func(_ *flickr.Credential, params map[string]string) (json.RawMessage, error) {
		if params["page"] == "1" {
			return json.RawMessage(`{"photos": {"page": 1, "pages": 2, "photo": [{"id": "1"}]}, "stat": "ok"}`), nil
		}
		return json.RawMessage(`{"photos": {"page": 2, "pages": 2, "photo": [{"id": "2"}]}, "stat": "ok"}`), nil
	})

	svc := NewSyncService(api, memStores(db), nil, 1)
	result, err := svc.SyncAccount(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Photos)
	assert.Zero(t, result.PhotoErrors)

	calls := api.Calls("flickr.people.getPhotos")
	require.Len(t, calls, 2)
	assert.Equal(t, "1", calls[0].Params["per_page"])
	assert.Equal(t, "me", calls[0].Params["user_id"])
}
