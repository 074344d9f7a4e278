package importer

import (
	"encoding/json"
	"fmt"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
)

// Account maps a flickr.people.getInfo response
func Account(raw json.RawMessage) (models.AccountFields, error) {
	var resp flickr.PersonResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.AccountFields{}, fmt.Errorf("failed to decode person: %w", err)
	}
	p := resp.Person

	f := models.AccountFields{
		FlickrID:   p.ID.String(),
		NSID:       p.NSID.String(),
		Username:   p.Username.String(),
		Realname:   p.Realname.String(),
		PhotosURL:  Unslash(p.PhotosURL.String()),
		ProfileURL: Unslash(p.ProfileURL.String()),
		MobileURL:  Unslash(p.MobileURL.String()),
		IconServer: p.IconServer.String(),
		PathAlias:  p.PathAlias.String(),
	}
	f.IconFarm, _ = p.IconFarm.Int()
	f.IsPro, _ = p.IsPro.Bool()
	if p.Timezone != nil {
		f.TZOffset = p.Timezone.Offset.String()
	}
	return f, nil
}
