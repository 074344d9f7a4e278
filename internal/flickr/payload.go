package flickr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Text is a scalar the Flickr API sends either as a JSON string or as a number
// (farm, dates, flags and dimensions switch between the two across endpoints).
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("flickr: expected a scalar, got %.20s", b)
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Int parses the value as a base 10 integer
func (t Text) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(t)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float parses the value as a float
func (t Text) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool understands 0/1 and true/false
func (t Text) Bool() (bool, bool) {
	switch strings.TrimSpace(string(t)) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	}
	return false, false
}

// Content is a string field that is usually wrapped as {"_content": "..."}
// but appears bare in some responses (collection trees for instance).
type Content string

func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var w struct {
			Content Text `json:"_content"`
		}
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*c = Content(w.Content)
		return nil
	}
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = Content(t)
	return nil
}

func (c Content) String() string {
	return string(c)
}

// envelope is the part every response shares
type envelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PhotoInfoResponse is returned by flickr.photos.getInfo
type PhotoInfoResponse struct {
	Photo PhotoInfo `json:"photo"`
}

type PhotoInfo struct {
	ID             Text        `json:"id"`
	Secret         Text        `json:"secret"`
	Server         Text        `json:"server"`
	Farm           Text        `json:"farm"`
	OriginalSecret Text        `json:"originalsecret"`
	OriginalFormat Text        `json:"originalformat"`
	License        Text        `json:"license"`
	Title          Content     `json:"title"`
	Description    Content     `json:"description"`
	Visibility     *Visibility `json:"visibility"`
	Dates          PhotoDates  `json:"dates"`
	Tags           struct {
		Tag []Tag `json:"tag"`
	} `json:"tags"`
	URLs struct {
		URL []PhotoURL `json:"url"`
	} `json:"urls"`
}

type Visibility struct {
	IsPublic Text `json:"ispublic"`
	IsFriend Text `json:"isfriend"`
	IsFamily Text `json:"isfamily"`
}

type PhotoDates struct {
	Posted           Text `json:"posted"`
	Taken            Text `json:"taken"`
	TakenGranularity Text `json:"takengranularity"`
	LastUpdate       Text `json:"lastupdate"`
}

type Tag struct {
	ID      Text `json:"id"`
	Raw     Text `json:"raw"`
	Content Text `json:"_content"`
}

type PhotoURL struct {
	Type    Text `json:"type"`
	Content Text `json:"_content"`
}

// SizesResponse is returned by flickr.photos.getSizes
type SizesResponse struct {
	Sizes struct {
		Size []SizeEntry `json:"size"`
	} `json:"sizes"`
}

type SizeEntry struct {
	Label  Text `json:"label"`
	Width  Text `json:"width"`
	Height Text `json:"height"`
	Source Text `json:"source"`
	URL    Text `json:"url"`
	Media  Text `json:"media"`
}

// ExifResponse is returned by flickr.photos.getExif. Fields are kept raw so
// each one can be decoded on its own and a malformed value only loses itself.
type ExifResponse struct {
	Photo struct {
		ID     Text            `json:"id"`
		Camera json.RawMessage `json:"camera"`
		Exif   json.RawMessage `json:"exif"`
	} `json:"photo"`
}

type ExifTag struct {
	TagSpace json.RawMessage `json:"tagspace"`
	Tag      json.RawMessage `json:"tag"`
	Label    json.RawMessage `json:"label"`
	Raw      json.RawMessage `json:"raw"`
	Clean    json.RawMessage `json:"clean"`
}

// GeoResponse is returned by flickr.photos.geo.getLocation. Location fields
// are raw for the same reason as ExifResponse.
type GeoResponse struct {
	Photo struct {
		ID       Text `json:"id"`
		Location *struct {
			Latitude  json.RawMessage `json:"latitude"`
			Longitude json.RawMessage `json:"longitude"`
			Accuracy  json.RawMessage `json:"accuracy"`
		} `json:"location"`
	} `json:"photo"`
}

// FieldContent decodes a single raw field as Content. ok is false when the
// field is absent or malformed.
func FieldContent(raw json.RawMessage) (c Content, ok bool) {
	if len(raw) == 0 {
		return "", false
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return "", false
	}
	return c, true
}

// PhotoSetInfo is one album as found in flickr.photosets.getInfo and getList
type PhotoSetInfo struct {
	ID          Text    `json:"id"`
	Primary     Text    `json:"primary"`
	Secret      Text    `json:"secret"`
	Server      Text    `json:"server"`
	Farm        Text    `json:"farm"`
	Photos      Text    `json:"photos"`
	Title       Content `json:"title"`
	Description Content `json:"description"`
	DateCreate  Text    `json:"date_create"`
	DateUpdate  Text    `json:"date_update"`
}

// PhotoSetListResponse is returned by flickr.photosets.getList
type PhotoSetListResponse struct {
	PhotoSets struct {
		Page     Text              `json:"page"`
		Pages    Text              `json:"pages"`
		PhotoSet []json.RawMessage `json:"photoset"`
	} `json:"photosets"`
}

// PhotoSetPhotosResponse is returned by flickr.photosets.getPhotos
type PhotoSetPhotosResponse struct {
	PhotoSet struct {
		ID    Text `json:"id"`
		Page  Text `json:"page"`
		Pages Text `json:"pages"`
		Photo []struct {
			ID Text `json:"id"`
		} `json:"photo"`
	} `json:"photoset"`
}

// CollectionTreeResponse is returned by flickr.collections.getTree
type CollectionTreeResponse struct {
	Collections struct {
		Collection []CollectionNode `json:"collection"`
	} `json:"collections"`
}

type CollectionNode struct {
	ID          Text             `json:"id"`
	Title       Content          `json:"title"`
	Description Content          `json:"description"`
	IconLarge   Text             `json:"iconlarge"`
	IconSmall   Text             `json:"iconsmall"`
	DateCreate  Text             `json:"date_create"`
	Set         []CollectionSet  `json:"set"`
	Collection  []CollectionNode `json:"collection"`
}

type CollectionSet struct {
	ID          Text    `json:"id"`
	Title       Content `json:"title"`
	Description Content `json:"description"`
}

// PersonResponse is returned by flickr.people.getInfo
type PersonResponse struct {
	Person Person `json:"person"`
}

type Person struct {
	ID         Text    `json:"id"`
	NSID       Text    `json:"nsid"`
	IsPro      Text    `json:"ispro"`
	IconServer Text    `json:"iconserver"`
	IconFarm   Text    `json:"iconfarm"`
	PathAlias  Text    `json:"path_alias"`
	Username   Content `json:"username"`
	Realname   Content `json:"realname"`
	PhotosURL  Content `json:"photosurl"`
	ProfileURL Content `json:"profileurl"`
	MobileURL  Content `json:"mobileurl"`
	Timezone   *struct {
		Offset Text `json:"offset"`
	} `json:"timezone"`
}

// PeoplePhotosResponse is returned by flickr.people.getPhotos
type PeoplePhotosResponse struct {
	Photos struct {
		Page  Text `json:"page"`
		Pages Text `json:"pages"`
		Total Text `json:"total"`
		Photo []struct {
			ID Text `json:"id"`
		} `json:"photo"`
	} `json:"photos"`
}

// TestLoginResponse is returned by flickr.test.login
type TestLoginResponse struct {
	User struct {
		ID       Text    `json:"id"`
		Username Content `json:"username"`
	} `json:"user"`
}

// CheckTokenResponse is returned by flickr.auth.oauth.checkToken
type CheckTokenResponse struct {
	OAuth struct {
		Token Content `json:"token"`
		Perms Content `json:"perms"`
		User  struct {
			NSID     Text `json:"nsid"`
			Username Text `json:"username"`
			Fullname Text `json:"fullname"`
		} `json:"user"`
	} `json:"oauth"`
}
