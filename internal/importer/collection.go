package importer

import (
	"encoding/json"
	"fmt"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
)

// CollectionTree decodes a flickr.collections.getTree response into its root nodes
func CollectionTree(raw json.RawMessage) ([]flickr.CollectionNode, error) {
	var resp flickr.CollectionTreeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode collection tree: %w", err)
	}
	return resp.Collections.Collection, nil
}

// Collection maps one tree node. It returns the node's columns, the ids of the
// sets it contains and its child nodes.
func Collection(node flickr.CollectionNode) (models.CollectionFields, []string, []flickr.CollectionNode) {
	f := models.CollectionFields{
		FlickrID:    node.ID.String(),
		Title:       node.Title.String(),
		Description: node.Description.String(),
		Icon:        Unslash(node.IconLarge.String()),
		DateCreated: EpochToTime(node.DateCreate),
	}
	if f.Icon == "" {
		f.Icon = Unslash(node.IconSmall.String())
	}

	var sets []string
	for _, s := range node.Set {
		if s.ID != "" {
			sets = append(sets, s.ID.String())
		}
	}
	return f, sets, node.Collection
}
