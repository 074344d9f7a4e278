package flickr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase58(t *testing.T) {
	assert.Equal(t, "1", Base58Encode(0))
	assert.Equal(t, "Z", Base58Encode(57))
	assert.Equal(t, "21", Base58Encode(58))

	for _, n := range []uint64{1, 58, 3392387861, 6110054503} {
		decoded, err := Base58Decode(Base58Encode(n))
		require.NoError(t, err)
		assert.Equal(t, n, decoded)
	}

	_, err := Base58Decode("0OIl")
	assert.Error(t, err)
}

func TestShortURL(t *testing.T) {
	url, err := ShortURL("58")
	require.NoError(t, err)
	assert.Equal(t, "https://flic.kr/p/21", url)

	_, err = ShortURL("not-a-number")
	assert.Error(t, err)
}

func TestPageURLs(t *testing.T) {
	u := NewPageURLs("http://flickr.com")
	account := u.Account("bees", "35034347371@N01")
	assert.Equal(t, "http://flickr.com/photos/bees/", account)
	assert.Equal(t, "http://flickr.com/photos/35034347371@N01/", u.Account("", "35034347371@N01"))

	assert.Equal(t, "http://flickr.com/photos/bees/555/", u.Photo(account, "555"))
	assert.Equal(t, "http://flickr.com/photos/bees/sets/721/", u.PhotoSet(account, "721"))
	assert.Equal(t, "http://flickr.com/photos/bees/collections/72157600000/",
		u.Collection(account, "1234-72157600000"))
}

func TestBuddyIcon(t *testing.T) {
	assert.Equal(t, "https://farm5.staticflickr.com/4/buddyicons/12@N01.jpg", BuddyIcon(5, "4", "12@N01"))
	assert.Equal(t, defaultBuddyIcon, BuddyIcon(0, "0", "12@N01"))
}
