package importer

import (
	"encoding/json"
	"testing"
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoto_Info(t *testing.T) {
	f, tags, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("6110054503", "Sagrada Familia", "barcelona", "church")})
	require.NoError(t, err)

	assert.Equal(t, "6110054503", f.FlickrID)
	assert.Equal(t, "Sagrada Familia", f.Title)
	assert.Equal(t, "6185", f.Server)
	assert.Equal(t, "7", f.Farm)
	assert.Equal(t, "3b4ea87c09", f.Secret)
	assert.Equal(t, "6a1e4e6a3c", f.OriginalSecret)
	assert.Equal(t, "jpg", f.OriginalFormat)
	assert.Equal(t, "4", f.License)
	assert.Contains(t, f.Description, `<a href="http://example.com/">`)
	assert.Equal(t, "http://www.flickr.com/photos/bees/6110054503/", f.URLPage)

	require.NotNil(t, f.DatePosted)
	assert.Equal(t, int64(testutil.PhotoPosted), f.DatePosted.Unix())
	require.NotNil(t, f.DateTaken)
	assert.Equal(t, time.Date(2011, 8, 30, 18, 12, 44, 0, time.Local), *f.DateTaken)
	require.NotNil(t, f.DateUpdated)
	assert.Equal(t, int64(1314821399), f.DateUpdated.Unix())
	require.NotNil(t, f.DateTakenGranularity)
	assert.Equal(t, 0, *f.DateTakenGranularity)

	require.NotNil(t, f.IsPublic)
	assert.True(t, *f.IsPublic)
	assert.False(t, *f.IsFriend)
	assert.False(t, *f.IsFamily)

	assert.Equal(t, []string{"barcelona", "church"}, tags)

	// no sizes, exif or geo given
	assert.Empty(t, f.Sizes)
	assert.Nil(t, f.Exif)
	assert.Nil(t, f.Location)
}

func TestPhoto_Sizes(t *testing.T) {
	f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("6110054503", "t"), Sizes: testutil.Sizes})
	require.NoError(t, err)

	// "Video Player" is not in the catalog
	assert.Len(t, f.Sizes, 6)

	sq := f.Sizes["square"]
	assert.Equal(t, 75, sq.Width)
	assert.Equal(t, 75, sq.Height)
	assert.Equal(t, "https://farm7.staticflickr.com/6185/6110054503_3b4ea87c09_s.jpg", sq.Source)
	assert.Equal(t, "http://www.flickr.com/photos/bees/6110054503/sizes/sq/", sq.URL)

	assert.Equal(t, 500, f.Sizes["medium500"].Width)
	assert.Equal(t, 640, f.Sizes["medium"].Width)
	assert.Equal(t, 683, f.Sizes["large"].Height)
	assert.Equal(t, "https://farm7.staticflickr.com/6185/6110054503_6a1e4e6a3c_o.jpg", f.Sizes["ori"].Source)
}

func TestPhoto_Exif(t *testing.T) {
	f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("6110054503", "t"), Exif: testutil.Exif})
	require.NoError(t, err)

	require.NotNil(t, f.Exif)
	assert.JSONEq(t, string(testutil.Exif), *f.Exif)
	assert.Equal(t, "Nikon D90", *f.ExifCamera)
	assert.Equal(t, "1/250", *f.ExifExposure)
	assert.Equal(t, "f/8.0", *f.ExifAperture)
	assert.Equal(t, 200, *f.ExifISO)
	assert.Equal(t, "No Flash", *f.ExifFlash)
	// Focal Length has no clean value
	assert.Nil(t, f.ExifFocal)
}

func TestPhoto_ExifMalformedKeepsPartialData(t *testing.T) {
	exif := json.RawMessage(`{"photo": {"camera": "Canon", "exif": {"not": "a list"}}, "stat": "ok"}`)
	f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Exif: exif})
	require.NoError(t, err)
	assert.Equal(t, "Canon", *f.ExifCamera)
	assert.Nil(t, f.ExifExposure)

	exif = json.RawMessage(`{"photo": {"exif": [{"label": "ISO Speed", "raw": {"_content": "high"}}, {"label": "Aperture", "clean": {"_content": "f\/2.8"}}]}}`)
	f, _, err = Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Exif: exif})
	require.NoError(t, err)
	assert.Nil(t, f.ExifISO)
	assert.Nil(t, f.ExifCamera)
	assert.Equal(t, "f/2.8", *f.ExifAperture)

	t.Run("wrapped camera", func(t *testing.T) {
		exif := json.RawMessage(`{"photo": {"camera": {"_content": "Nikon"}, "exif": [
			{"label": "Exposure", "raw": {"_content": "1/250"}},
			{"label": "Flash", "raw": {"_content": "Off, Did not fire"}}]}}`)
		f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Exif: exif})
		require.NoError(t, err)
		require.NotNil(t, f.ExifCamera)
		assert.Equal(t, "Nikon", *f.ExifCamera)
		require.NotNil(t, f.ExifExposure)
		assert.Equal(t, "1/250", *f.ExifExposure)
		require.NotNil(t, f.ExifFlash)
		assert.Equal(t, "Off, Did not fire", *f.ExifFlash)
	})

	t.Run("malformed camera keeps tags", func(t *testing.T) {
		exif := json.RawMessage(`{"photo": {"camera": [1, 2], "exif": [{"label": "Exposure", "raw": {"_content": "1/60"}}]}}`)
		f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Exif: exif})
		require.NoError(t, err)
		assert.Nil(t, f.ExifCamera)
		require.NotNil(t, f.ExifExposure)
		assert.Equal(t, "1/60", *f.ExifExposure)
	})

	t.Run("malformed clean keeps raw", func(t *testing.T) {
		exif := json.RawMessage(`{"photo": {"exif": [
			{"label": "Exposure", "raw": {"_content": "1/250"}, "clean": [1, 2]},
			{"label": "ISO Speed", "raw": {"_content": "400"}, "clean": {"_content": {"x": 1}}}]}}`)
		f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Exif: exif})
		require.NoError(t, err)
		require.NotNil(t, f.ExifExposure)
		assert.Equal(t, "1/250", *f.ExifExposure)
		require.NotNil(t, f.ExifISO)
		assert.Equal(t, 400, *f.ExifISO)
	})

	t.Run("malformed geo accuracy keeps location", func(t *testing.T) {
		geo := json.RawMessage(`{"photo": {"location": {"latitude": "41.5", "longitude": 2.25, "accuracy": {"bad": true}}}}`)
		f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Geo: geo})
		require.NoError(t, err)
		require.NotNil(t, f.Location)
		assert.InDelta(t, 41.5, f.Location.Lat(), 1e-9)
		assert.InDelta(t, 2.25, f.Location.Lon(), 1e-9)
		assert.Nil(t, f.GeoAccuracy)
	})
}

func TestPhoto_Geo(t *testing.T) {
	f, _, err := Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Geo: testutil.Geo})
	require.NoError(t, err)
	require.NotNil(t, f.Location)
	assert.InDelta(t, 41.387917, f.Location.Lat(), 1e-9)
	assert.InDelta(t, 2.169919, f.Location.Lon(), 1e-9)
	assert.Equal(t, 16, *f.GeoAccuracy)

	f, _, err = Photo(PhotoPayload{Info: testutil.PhotoInfo("1", "t"), Geo: json.RawMessage(`{"photo":{"location":{"latitude":"x"}}}`)})
	require.NoError(t, err)
	assert.Nil(t, f.Location)
}

func TestPhoto_InfoRequired(t *testing.T) {
	_, _, err := Photo(PhotoPayload{})
	assert.Error(t, err)

	_, _, err = Photo(PhotoPayload{Info: json.RawMessage(`{"photo": {"title": "no id"}}`)})
	assert.Error(t, err)

	_, _, err = Photo(PhotoPayload{Info: json.RawMessage(`not json`)})
	assert.Error(t, err)
}

func TestPhotoSet(t *testing.T) {
	f, members, err := PhotoSet(
		testutil.PhotoSetInfo("72157600000000101", "Barcelona", "6110054503"),
		testutil.PhotoSetPhotos("72157600000000101", "6110054503", "6110054504"),
	)
	require.NoError(t, err)

	assert.Equal(t, "72157600000000101", f.FlickrID)
	assert.Equal(t, "Barcelona", f.Title)
	assert.Equal(t, "Set description", f.Description)
	assert.Equal(t, "6110054503", f.PrimaryPhoto)
	assert.Equal(t, "7", f.Farm)
	require.NotNil(t, f.DatePosted)
	assert.Equal(t, int64(1314821500), f.DatePosted.Unix())
	assert.Equal(t, int64(1314821600), f.DateUpdated.Unix())
	assert.Equal(t, []string{"6110054503", "6110054504"}, members)
}

func TestUnwrapPhotoSet(t *testing.T) {
	resp := json.RawMessage(`{"photoset": ` + string(testutil.PhotoSetInfo("5", "Five", "")) + `, "stat": "ok"}`)
	inner, err := UnwrapPhotoSet(resp)
	require.NoError(t, err)

	f, members, err := PhotoSet(inner, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", f.FlickrID)
	assert.Empty(t, members)

	_, err = UnwrapPhotoSet(json.RawMessage(`{"stat": "ok"}`))
	assert.Error(t, err)
}

func TestCollection(t *testing.T) {
	roots, err := CollectionTree(testutil.CollectionTree)
	require.NoError(t, err)
	require.Len(t, roots, 3)

	f, sets, children := Collection(roots[0])
	assert.Equal(t, "12-72157600000000001", f.FlickrID)
	assert.Equal(t, "Travel", f.Title)
	assert.Equal(t, "Trips", f.Description)
	assert.Equal(t, "https://farm1.staticflickr.com/1/cols/1_l.jpg", f.Icon)
	assert.Nil(t, f.DateCreated)
	assert.Empty(t, sets)
	require.Len(t, children, 2)

	_, sets, grandchildren := Collection(children[0])
	assert.Empty(t, sets)
	require.Len(t, grandchildren, 1)
	_, sets, _ = Collection(grandchildren[0])
	assert.Equal(t, []string{"72157600000000101"}, sets)

	f, _, _ = Collection(roots[2])
	require.NotNil(t, f.DateCreated)
	assert.Equal(t, int64(1314821700), f.DateCreated.Unix())
}

func TestAccount(t *testing.T) {
	f, err := Account(testutil.Person)
	require.NoError(t, err)

	assert.Equal(t, "35034347371@N01", f.FlickrID)
	assert.Equal(t, "35034347371@N01", f.NSID)
	assert.Equal(t, "bees", f.Username)
	assert.Equal(t, "Cal Henderson", f.Realname)
	assert.Equal(t, "https://www.flickr.com/people/bees/", f.ProfileURL)
	assert.Equal(t, "5", f.IconServer)
	assert.Equal(t, 1, f.IconFarm)
	assert.Equal(t, "bees", f.PathAlias)
	assert.True(t, f.IsPro)
	assert.Equal(t, "-08:00", f.TZOffset)
}

func TestUnslash(t *testing.T) {
	assert.Equal(t, "http://flickr.com/photos/", Unslash(`http:\/\/flickr.com\/photos\/`))
	assert.Equal(t, "plain", Unslash("plain"))
}

func TestEpochToTime(t *testing.T) {
	assert.Nil(t, EpochToTime(""))
	assert.Nil(t, EpochToTime(flickr.Text("soon")))
	got := EpochToTime(flickr.Text("0"))
	require.NotNil(t, got)
	assert.Equal(t, int64(0), got.Unix())
}
