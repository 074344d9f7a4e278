// Package importer turns Flickr API responses into the flat field sets the
// repositories persist.
package importer

import (
	"strings"
	"time"

	"flickr-mirror/internal/flickr"
)

// Unslash undoes the "\/" escaping Flickr applies to URLs
func Unslash(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

// EpochToTime converts a Unix timestamp to local time. Empty or invalid values
// yield nil.
func EpochToTime(t flickr.Text) *time.Time {
	secs, ok := t.Int()
	if !ok {
		return nil
	}
	v := time.Unix(int64(secs), 0)
	return &v
}

func parseDateTime(t flickr.Text) *time.Time {
	if t == "" {
		return nil
	}
	v, err := flickr.ParseTime(t.String())
	if err != nil {
		return nil
	}
	return &v
}

func optInt(t flickr.Text) *int {
	n, ok := t.Int()
	if !ok {
		return nil
	}
	return &n
}

func optBool(t flickr.Text) *bool {
	b, ok := t.Bool()
	if !ok {
		return nil
	}
	return &b
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
