package storage

import (
	"path"
	"time"

	"github.com/ncruces/go-strftime"
)

const undatedDir = "undated"

// KeyBuilder lays out object keys as {base}/{strftime(format, posted)}/{filename}
type KeyBuilder struct {
	Base   string
	Format string
}

// Key returns the object key for a file posted at t (nil when unknown)
func (b KeyBuilder) Key(posted *time.Time, filename string) string {
	dir := undatedDir
	if posted != nil && b.Format != "" {
		dir = strftime.Format(b.Format, *posted)
	}
	return path.Join(b.Base, dir, filename)
}
