package importer

import (
	"encoding/json"
	"fmt"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"

	"github.com/paulmach/orb"
)

// PhotoPayload groups the responses fetched for one photo. Only Info is
// required; the others may be nil.
type PhotoPayload struct {
	Info  json.RawMessage // flickr.photos.getInfo
	Sizes json.RawMessage // flickr.photos.getSizes
	Exif  json.RawMessage // flickr.photos.getExif
	Geo   json.RawMessage // flickr.photos.geo.getLocation
}

// Photo maps a photo payload to its columns and its tag list
func Photo(p PhotoPayload) (models.PhotoFields, []string, error) {
	if len(p.Info) == 0 {
		return models.PhotoFields{}, nil, fmt.Errorf("photo info is required")
	}
	var resp flickr.PhotoInfoResponse
	if err := json.Unmarshal(p.Info, &resp); err != nil {
		return models.PhotoFields{}, nil, fmt.Errorf("failed to decode photo info: %w", err)
	}
	info := resp.Photo
	if info.ID == "" {
		return models.PhotoFields{}, nil, fmt.Errorf("photo info has no id")
	}

	f := models.PhotoFields{
		FlickrID:             info.ID.String(),
		Server:               info.Server.String(),
		Farm:                 info.Farm.String(),
		Secret:               info.Secret.String(),
		OriginalSecret:       info.OriginalSecret.String(),
		OriginalFormat:       info.OriginalFormat.String(),
		Title:                info.Title.String(),
		Description:          info.Description.String(),
		DatePosted:           EpochToTime(info.Dates.Posted),
		DateTaken:            parseDateTime(info.Dates.Taken),
		DateTakenGranularity: optInt(info.Dates.TakenGranularity),
		DateUpdated:          EpochToTime(info.Dates.LastUpdate),
		License:              info.License.String(),
		Sizes:                map[string]models.PhotoSize{},
	}
	if f.License == "" {
		f.License = "0"
	}
	if v := info.Visibility; v != nil {
		f.IsPublic = optBool(v.IsPublic)
		f.IsFriend = optBool(v.IsFriend)
		f.IsFamily = optBool(v.IsFamily)
	}
	for _, u := range info.URLs.URL {
		if u.Type == "photopage" {
			f.URLPage = Unslash(u.Content.String())
		}
	}

	var tags []string
	for _, t := range info.Tags.Tag {
		if t.Content != "" {
			tags = append(tags, t.Content.String())
		}
	}

	applySizes(&f, p.Sizes)
	applyExif(&f, p.Exif)
	applyGeo(&f, p.Geo)

	return f, tags, nil
}

// applySizes copies each listed rendition the catalog knows about.
// Unknown labels and malformed entries are skipped.
func applySizes(f *models.PhotoFields, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var resp struct {
		Sizes struct {
			Size []json.RawMessage `json:"size"`
		} `json:"sizes"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return
	}
	for _, item := range resp.Sizes.Size {
		var entry flickr.SizeEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		size, ok := flickr.SizeByName(entry.Label.String())
		if !ok {
			continue
		}
		width, _ := entry.Width.Int()
		height, _ := entry.Height.Int()
		f.Sizes[size.Label] = models.PhotoSize{
			Width:  width,
			Height: height,
			Source: Unslash(entry.Source.String()),
			URL:    Unslash(entry.URL.String()),
		}
	}
}

// applyExif fills the EXIF summary. Each field is decoded on its own: a
// missing or malformed value leaves only that field nil.
func applyExif(f *models.PhotoFields, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	text := string(raw)
	f.Exif = &text

	var resp flickr.ExifResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return
	}
	f.ExifCamera = fieldString(resp.Photo.Camera)

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Photo.Exif, &items); err != nil {
		return
	}
	for _, item := range items {
		var tag flickr.ExifTag
		if err := json.Unmarshal(item, &tag); err != nil {
			continue
		}
		label, _ := flickr.FieldContent(tag.Label)
		switch label {
		case "Exposure":
			f.ExifExposure = fieldString(tag.Raw)
		case "Aperture":
			f.ExifAperture = fieldString(tag.Clean)
		case "ISO Speed":
			if s := fieldString(tag.Raw); s != nil {
				f.ExifISO = optInt(flickr.Text(*s))
			}
		case "Focal Length":
			f.ExifFocal = fieldString(tag.Clean)
		case "Flash":
			f.ExifFlash = fieldString(tag.Raw)
		}
	}
}

func fieldString(raw json.RawMessage) *string {
	c, ok := flickr.FieldContent(raw)
	if !ok {
		return nil
	}
	return optString(Unslash(c.String()))
}

func fieldText(raw json.RawMessage) flickr.Text {
	c, _ := flickr.FieldContent(raw)
	return flickr.Text(c)
}

func applyGeo(f *models.PhotoFields, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var resp flickr.GeoResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Photo.Location == nil {
		return
	}
	loc := resp.Photo.Location
	lat, okLat := fieldText(loc.Latitude).Float()
	lng, okLng := fieldText(loc.Longitude).Float()
	if okLat && okLng {
		f.Location = &orb.Point{lng, lat}
	}
	f.GeoAccuracy = optInt(fieldText(loc.Accuracy))
}
