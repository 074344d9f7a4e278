// Package testutil holds fixtures and in-memory collaborators shared by tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PhotoPosted is the dateposted epoch used by PhotoInfo: 2011-08-31 20:09:13 UTC
const PhotoPosted = 1314821353

// PhotoInfo builds a flickr.photos.getInfo response
func PhotoInfo(id, title string, tags ...string) json.RawMessage {
	return PhotoInfoPosted(id, title, PhotoPosted, tags...)
}

// PhotoInfoPosted is PhotoInfo with a custom posted epoch
func PhotoInfoPosted(id, title string, posted int64, tags ...string) json.RawMessage {
	tagJSON := make([]string, 0, len(tags))
	for i, tag := range tags {
		tagJSON = append(tagJSON, fmt.Sprintf(
			`{"id":"123-%s-%d","author":"12@N01","raw":%q,"_content":%q,"machine_tag":0}`, id, i, strings.ToUpper(tag), tag))
	}
	return json.RawMessage(fmt.Sprintf(`{
  "photo": {
    "id": %q, "secret": "3b4ea87c09", "server": "6185", "farm": 7,
    "dateuploaded": "%d", "isfavorite": 0, "license": "4", "safety_level": "0",
    "originalsecret": "6a1e4e6a3c", "originalformat": "jpg",
    "title": {"_content": %q},
    "description": {"_content": "A description with <a href=\"http:\/\/example.com\/\">a link<\/a>"},
    "visibility": {"ispublic": 1, "isfriend": 0, "isfamily": 0},
    "dates": {"posted": "%d", "taken": "2011-08-30 18:12:44", "takengranularity": "0", "lastupdate": "1314821399"},
    "tags": {"tag": [%s]},
    "urls": {"url": [{"type": "photopage", "_content": "http:\/\/www.flickr.com\/photos\/bees\/%s\/"}]}
  },
  "stat": "ok"
}`, id, posted, title, posted, strings.Join(tagJSON, ","), id))
}

// Sizes is a flickr.photos.getSizes response, including a label the catalog
// does not know ("Video Player").
var Sizes = json.RawMessage(`{
  "sizes": {"canblog": 0, "canprint": 0, "candownload": 1, "size": [
    {"label": "Square", "width": 75, "height": 75, "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_3b4ea87c09_s.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/sq\/", "media": "photo"},
    {"label": "Thumbnail", "width": "100", "height": "67", "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_3b4ea87c09_t.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/t\/", "media": "photo"},
    {"label": "Medium", "width": "500", "height": "333", "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_3b4ea87c09.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/m\/", "media": "photo"},
    {"label": "Medium 640", "width": "640", "height": "427", "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_3b4ea87c09_z.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/z\/", "media": "photo"},
    {"label": "Large", "width": "1024", "height": "683", "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_3b4ea87c09_b.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/l\/", "media": "photo"},
    {"label": "Original", "width": "4288", "height": "2859", "source": "https:\/\/farm7.staticflickr.com\/6185\/6110054503_6a1e4e6a3c_o.jpg", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/sizes\/o\/", "media": "photo"},
    {"label": "Video Player", "width": 640, "height": 360, "source": "https:\/\/www.flickr.com\/apps\/video\/stewart.swf", "url": "http:\/\/www.flickr.com\/photos\/bees\/6110054503\/", "media": "video"}
  ]},
  "stat": "ok"
}`)

// Exif is a flickr.photos.getExif response. "Focal Length" has no clean
// value and one entry is not an object.
var Exif = json.RawMessage(`{
  "photo": {"id": "6110054503", "secret": "3b4ea87c09", "server": "6185", "farm": 7, "camera": "Nikon D90", "exif": [
    {"tagspace": "IFD0", "tagspaceid": 0, "tag": "Make", "label": "Make", "raw": {"_content": "NIKON CORPORATION"}},
    {"tagspace": "IFD0", "tagspaceid": 0, "tag": "Model", "label": "Model", "raw": {"_content": "NIKON D90"}},
    {"tagspace": "IFD0", "tagspaceid": 0, "tag": "Orientation", "label": "Orientation", "raw": {"_content": "Horizontal (normal)"}},
    {"tagspace": "ExifIFD", "tagspaceid": 0, "tag": "ExposureTime", "label": "Exposure", "raw": {"_content": "1\/250"}, "clean": {"_content": "0.004 sec (1\/250)"}},
    {"tagspace": "ExifIFD", "tagspaceid": 0, "tag": "FNumber", "label": "Aperture", "raw": {"_content": "8.0"}, "clean": {"_content": "f\/8.0"}},
    {"tagspace": "ExifIFD", "tagspaceid": 0, "tag": "ISO", "label": "ISO Speed", "raw": {"_content": "200"}},
    {"tagspace": "ExifIFD", "tagspaceid": 0, "tag": "FocalLength", "label": "Focal Length", "raw": {"_content": "18.0 mm"}},
    {"tagspace": "ExifIFD", "tagspaceid": 0, "tag": "Flash", "label": "Flash", "raw": {"_content": "No Flash"}},
    "garbage"
  ]},
  "stat": "ok"
}`)

// Geo is a flickr.photos.geo.getLocation response
var Geo = json.RawMessage(`{
  "photo": {"id": "6110054503", "location": {"latitude": "41.387917", "longitude": 2.169919, "accuracy": "16", "context": "0"}},
  "stat": "ok"
}`)

// Person is a flickr.people.getInfo response
var Person = json.RawMessage(`{
  "person": {
    "id": "35034347371@N01", "nsid": "35034347371@N01", "ispro": 1, "can_buy_pro": 0,
    "iconserver": "5", "iconfarm": 1, "path_alias": "bees",
    "username": {"_content": "bees"},
    "realname": {"_content": "Cal Henderson"},
    "location": {"_content": "San Francisco"},
    "timezone": {"label": "Pacific Time (US & Canada); Tijuana", "offset": "-08:00"},
    "photosurl": {"_content": "https:\/\/www.flickr.com\/photos\/bees\/"},
    "profileurl": {"_content": "https:\/\/www.flickr.com\/people\/bees\/"},
    "mobileurl": {"_content": "https:\/\/m.flickr.com\/photostream.gne?id=12"}
  },
  "stat": "ok"
}`)

// PhotoSetInfo builds one album object as found in flickr.photosets.getList
func PhotoSetInfo(id, title, primary string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
  "id": %q, "primary": %q, "secret": "f8c4d0e2a1", "server": "6185", "farm": 7,
  "photos": 2, "videos": 0,
  "title": {"_content": %q},
  "description": {"_content": "Set description"},
  "date_create": "1314821500", "date_update": "1314821600"
}`, id, primary, title))
}

// PhotoSetPhotos builds a flickr.photosets.getPhotos response
func PhotoSetPhotos(setID string, photoIDs ...string) json.RawMessage {
	items := make([]string, 0, len(photoIDs))
	for _, id := range photoIDs {
		items = append(items, fmt.Sprintf(`{"id": %q, "secret": "x", "server": "1", "farm": 1, "title": "", "isprimary": "0"}`, id))
	}
	return json.RawMessage(fmt.Sprintf(`{
  "photoset": {"id": %q, "primary": "", "owner": "12@N01", "page": 1, "per_page": 500, "pages": 1, "total": %d, "photo": [%s]},
  "stat": "ok"
}`, setID, len(photoIDs), strings.Join(items, ",")))
}

// CollectionTree is a flickr.collections.getTree response with 9 collections,
// 6 of which have a parent, nested up to three levels deep.
var CollectionTree = json.RawMessage(`{
  "collections": {"collection": [
    {"id": "12-72157600000000001", "title": "Travel", "description": "Trips", "iconlarge": "https:\/\/farm1.staticflickr.com\/1\/cols\/1_l.jpg", "iconsmall": "https:\/\/farm1.staticflickr.com\/1\/cols\/1_s.jpg",
      "collection": [
        {"id": "12-72157600000000002", "title": "Europe", "description": "",
          "collection": [
            {"id": "12-72157600000000003", "title": "Spain", "description": "", "set": [{"id": "72157600000000101", "title": "Barcelona", "description": ""}]}
          ]},
        {"id": "12-72157600000000004", "title": "Asia", "description": "", "set": [{"id": "72157600000000102", "title": "Tokyo", "description": ""}]}
      ]},
    {"id": "12-72157600000000005", "title": "Family", "description": "",
      "collection": [
        {"id": "12-72157600000000006", "title": "Birthdays", "description": "", "set": [{"id": "72157600000000101", "title": "Barcelona", "description": ""}, {"id": "72157600000000999", "title": "Unknown", "description": ""}]},
        {"id": "12-72157600000000007", "title": "Holidays", "description": ""}
      ]},
    {"id": "12-72157600000000008", "title": "Work", "description": "", "date_create": "1314821700",
      "collection": [
        {"id": "12-72157600000000009", "title": "Events", "description": ""}
      ]}
  ]},
  "stat": "ok"
}`)
