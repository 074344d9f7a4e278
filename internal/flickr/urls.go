package flickr

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	shortURLBase     = "https://flic.kr/p/"
	defaultBuddyIcon = "https://www.flickr.com/images/buddyicon.gif"
	base58Alphabet   = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	defaultURLBase   = "http://flickr.com/"
)

// PageURLs builds links back to flickr.com pages
type PageURLs struct {
	Base string
}

// NewPageURLs returns a PageURLs rooted at base, which must end with a slash
func NewPageURLs(base string) PageURLs {
	if base == "" {
		base = defaultURLBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return PageURLs{Base: base}
}

// Account is the photostream of a user, preferring the username over the nsid
func (u PageURLs) Account(username, nsid string) string {
	who := username
	if who == "" {
		who = nsid
	}
	return fmt.Sprintf("%sphotos/%s/", u.Base, who)
}

// Photo is the page of one photo in a user's photostream
func (u PageURLs) Photo(accountURL, photoID string) string {
	return accountURL + photoID + "/"
}

// PhotoSet is the page of an album
func (u PageURLs) PhotoSet(accountURL, setID string) string {
	return accountURL + "sets/" + setID + "/"
}

// Collection is the page of a collection. Tree ids look like "12345-72157...",
// only the part after the dash is used on flickr.com.
func (u PageURLs) Collection(accountURL, collectionID string) string {
	parts := strings.Split(collectionID, "-")
	return accountURL + "collections/" + parts[len(parts)-1] + "/"
}

// BuddyIcon returns the avatar URL of a user
func BuddyIcon(iconFarm int, iconServer, nsid string) string {
	if iconServer == "" || iconServer == "0" {
		return defaultBuddyIcon
	}
	return fmt.Sprintf("https://farm%d.staticflickr.com/%s/buddyicons/%s.jpg", iconFarm, iconServer, nsid)
}

// ShortURL returns the flic.kr link of a photo
func ShortURL(photoID string) (string, error) {
	id, err := strconv.ParseUint(photoID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid photo id %q: %w", photoID, err)
	}
	return shortURLBase + Base58Encode(id), nil
}

// Base58Encode encodes n with Flickr's base58 alphabet
func Base58Encode(n uint64) string {
	base := uint64(len(base58Alphabet))
	if n == 0 {
		return string(base58Alphabet[0])
	}
	var out []byte
	for n > 0 {
		out = append(out, base58Alphabet[n%base])
		n /= base
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Base58Decode is the inverse of Base58Encode
func Base58Decode(s string) (uint64, error) {
	base := uint64(len(base58Alphabet))
	var n uint64
	for _, c := range s {
		i := strings.IndexRune(base58Alphabet, c)
		if i < 0 {
			return 0, fmt.Errorf("invalid base58 character %q", c)
		}
		n = n*base + uint64(i)
	}
	return n, nil
}
