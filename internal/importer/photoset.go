package importer

import (
	"encoding/json"
	"fmt"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
)

// PhotoSet maps one album (the "photoset" object of getInfo or an entry of
// getList) and its flickr.photosets.getPhotos response. photos may be nil.
func PhotoSet(info, photos json.RawMessage) (models.PhotoSetFields, []string, error) {
	var set flickr.PhotoSetInfo
	if err := json.Unmarshal(info, &set); err != nil {
		return models.PhotoSetFields{}, nil, fmt.Errorf("failed to decode photoset: %w", err)
	}
	if set.ID == "" {
		return models.PhotoSetFields{}, nil, fmt.Errorf("photoset has no id")
	}

	f := models.PhotoSetFields{
		FlickrID:     set.ID.String(),
		Server:       set.Server.String(),
		Farm:         set.Farm.String(),
		Secret:       set.Secret.String(),
		Title:        set.Title.String(),
		Description:  set.Description.String(),
		PrimaryPhoto: set.Primary.String(),
		DatePosted:   EpochToTime(set.DateCreate),
		DateUpdated:  EpochToTime(set.DateUpdate),
	}

	members, err := PhotoSetMembers(photos)
	if err != nil {
		return models.PhotoSetFields{}, nil, err
	}
	return f, members, nil
}

// PhotoSetMembers lists the photo ids of a flickr.photosets.getPhotos response
func PhotoSetMembers(photos json.RawMessage) ([]string, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	var resp flickr.PhotoSetPhotosResponse
	if err := json.Unmarshal(photos, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode photoset photos: %w", err)
	}
	ids := make([]string, 0, len(resp.PhotoSet.Photo))
	for _, p := range resp.PhotoSet.Photo {
		if p.ID != "" {
			ids = append(ids, p.ID.String())
		}
	}
	return ids, nil
}

// UnwrapPhotoSet extracts the "photoset" object of a flickr.photosets.getInfo response
func UnwrapPhotoSet(resp json.RawMessage) (json.RawMessage, error) {
	var w struct {
		PhotoSet json.RawMessage `json:"photoset"`
	}
	if err := json.Unmarshal(resp, &w); err != nil {
		return nil, fmt.Errorf("failed to decode photoset info: %w", err)
	}
	if len(w.PhotoSet) == 0 {
		return nil, fmt.Errorf("response has no photoset")
	}
	return w.PhotoSet, nil
}
