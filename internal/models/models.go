package models

import (
	"time"

	"github.com/paulmach/orb"
)

// User represents a local account of the mirror
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFields are the profile values read from flickr.people.getInfo
type AccountFields struct {
	FlickrID   string
	NSID       string
	Username   string
	Realname   string
	PhotosURL  string
	ProfileURL string
	MobileURL  string
	IconServer string
	IconFarm   int
	PathAlias  string
	IsPro      bool
	TZOffset   string
}

// RemoteAccount is the Flickr profile linked to a local user
type RemoteAccount struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`
	AccountFields

	Token       *string   `json:"-"`
	TokenSecret *string   `json:"-"`
	Perms       *string   `json:"perms,omitempty"`
	LastSync    time.Time `json:"last_sync"`
}

// Linked reports whether an OAuth token is stored for the account
func (a *RemoteAccount) Linked() bool {
	return a.Token != nil && *a.Token != ""
}

// PhotoSize is one rendition of a photo
type PhotoSize struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// PhotoFields holds every photo column that is derived from the Flickr API
type PhotoFields struct {
	FlickrID       string
	Server         string
	Farm           string
	Secret         string
	OriginalSecret string
	OriginalFormat string

	Title       string
	Description string

	DatePosted           *time.Time
	DateTaken            *time.Time
	DateTakenGranularity *int
	DateUpdated          *time.Time

	URLPage string
	License string

	IsPublic *bool
	IsFriend *bool
	IsFamily *bool

	// Sizes is keyed by the short size label ("square", "large", "ori", ...)
	Sizes map[string]PhotoSize

	Exif         *string
	ExifCamera   *string
	ExifExposure *string
	ExifAperture *string
	ExifISO      *int
	ExifFocal    *string
	ExifFlash    *string

	Location    *orb.Point
	GeoAccuracy *int
}

// Photo is a mirrored Flickr photo
type Photo struct {
	ID        int64 `json:"id"`
	AccountID int64 `json:"account_id"`
	Show      bool  `json:"show"`
	PhotoFields
	Tags     []string  `json:"tags"`
	LastSync time.Time `json:"last_sync"`
}

// Size returns the stored rendition for a short size label
func (p *Photo) Size(label string) (PhotoSize, bool) {
	s, ok := p.Sizes[label]
	return s, ok
}

// OriginalExtension is the file extension Flickr serves the original in
func (p *Photo) OriginalExtension() string {
	if p.OriginalFormat == "" {
		return "jpg"
	}
	return p.OriginalFormat
}

// PhotoSetFields holds the photoset columns derived from the Flickr API
type PhotoSetFields struct {
	FlickrID     string
	Server       string
	Farm         string
	Secret       string
	Title        string
	Description  string
	PrimaryPhoto string
	DatePosted   *time.Time
	DateUpdated  *time.Time
}

// PhotoSet is a mirrored Flickr album
type PhotoSet struct {
	ID        int64 `json:"id"`
	AccountID int64 `json:"account_id"`
	Show      bool  `json:"show"`
	PhotoSetFields
	LastSync time.Time `json:"last_sync"`
}

// CollectionFields holds the collection columns derived from the Flickr API
type CollectionFields struct {
	FlickrID    string
	Title       string
	Description string
	Icon        string
	DateCreated *time.Time
}

// Collection is one node of a user's collection tree
type Collection struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Show      bool   `json:"show"`
	CollectionFields
	LastSync time.Time `json:"last_sync"`
}

// ResponseCache keeps the raw payloads fetched for a photo
type ResponseCache struct {
	ID        int64
	FlickrID  string
	Info      *string
	Sizes     *string
	Exif      *string
	Geo       *string
	Exception *string
	Added     time.Time
}

// DownloadRecord tracks the stored binary of a photo
type DownloadRecord struct {
	ID             int64
	PhotoID        int64
	URL            string
	FileKey        *string
	Original       *bool
	Errors         *string
	DateDownloaded time.Time
}

// PendingAuthorization is an OAuth request token awaiting the user's approval
type PendingAuthorization struct {
	RequestToken  string `json:"request_token"`
	RequestSecret string `json:"request_secret"`
	UserID        string `json:"user_id"`
}
