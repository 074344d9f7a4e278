package handlers

import (
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"

	"github.com/jaytaylor/html2text"
)

// Photos posted up to this day have no Large rendition on Flickr. Only the
// calendar date matters; it is compared with the posted date in the zone the
// time was stored in.
var largeCutoff = time.Date(2010, 5, 25, 0, 0, 0, 0, time.UTC)

const defaultDisplaySize = "medium"

// ResolveDisplaySize picks the rendition to show for a requested size label.
// Large is not available for old photos, so those get the Original for pro
// accounts and Medium 640 otherwise. Unknown labels resolve to Medium 640.
func ResolveDisplaySize(photo *models.Photo, account *models.RemoteAccount, requested string) flickr.Size {
	size, ok := flickr.SizeByLabel(requested)
	if !ok {
		return flickr.MustSize(defaultDisplaySize)
	}
	if size.Label != "large" || photo.DatePosted == nil {
		return size
	}

	y, m, d := photo.DatePosted.Date()
	if time.Date(y, m, d, 0, 0, 0, 0, time.UTC).After(largeCutoff) {
		return size
	}
	if account != nil && account.IsPro {
		return flickr.MustSize("ori")
	}
	return flickr.MustSize(defaultDisplaySize)
}

// DisplayPhoto is what the photo template helper renders
type DisplayPhoto struct {
	Photo  *models.Photo
	Size   flickr.Size
	Src    string
	Width  int
	Height int
	Page   string
}

// displayPhoto resolves the rendition of photo to show. Renditions that were
// not mirrored are built from the catalog.
func displayPhoto(photo *models.Photo, account *models.RemoteAccount, requested string) *DisplayPhoto {
	if photo == nil {
		return nil
	}
	size := ResolveDisplaySize(photo, account, requested)
	d := &DisplayPhoto{Photo: photo, Size: size, Page: photo.URLPage}

	if rendition, ok := photo.Size(size.Label); ok && rendition.Source != "" {
		d.Src, d.Width, d.Height = rendition.Source, rendition.Width, rendition.Height
		return d
	}
	secret, ext := photo.Secret, "jpg"
	if size.Label == "ori" && photo.OriginalSecret != "" {
		secret, ext = photo.OriginalSecret, photo.OriginalExtension()
	}
	d.Src = flickr.BuildSourceURL(photo.Farm, photo.Server, photo.FlickrID, secret, size, ext)
	d.Width, d.Height = size.Width, size.Height
	return d
}

// plainText renders an HTML description as text
func plainText(s string) string {
	text, err := html2text.FromString(s, html2text.Options{OmitLinks: true})
	if err != nil {
		return s
	}
	return text
}

func shortURL(photoID string) string {
	u, err := flickr.ShortURL(photoID)
	if err != nil {
		return ""
	}
	return u
}

func buddyIcon(account *models.RemoteAccount) string {
	if account == nil {
		return flickr.BuddyIcon(0, "", "")
	}
	return flickr.BuddyIcon(account.IconFarm, account.IconServer, account.NSID)
}
