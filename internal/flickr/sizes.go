package flickr

import "fmt"

// Size describes one of Flickr's fixed photo renditions.
//
// See https://www.flickr.com/services/api/misc.urls.html
type Size struct {
	Name    string // label used by flickr.photos.getSizes
	Label   string // short label used for storage and templates
	Width   int    // fixed width for square crops
	Height  int
	Longest int    // longest edge for proportional sizes, 0 when unbounded
	Suffix  string // URL suffix, empty for the legacy 500px size
}

var sizes = []Size{
	{Name: "Square", Label: "square", Width: 75, Height: 75, Suffix: "s"},
	{Name: "Large Square", Label: "largesquare", Width: 150, Height: 150, Suffix: "q"},
	{Name: "Thumbnail", Label: "thumb", Longest: 100, Suffix: "t"},
	{Name: "Small", Label: "small", Longest: 240, Suffix: "m"},
	{Name: "Small 320", Label: "small320", Longest: 320, Suffix: "n"},
	{Name: "Medium", Label: "medium500", Longest: 500},
	{Name: "Medium 640", Label: "medium", Longest: 640, Suffix: "z"},
	{Name: "Medium 800", Label: "medium800", Longest: 800, Suffix: "c"},
	{Name: "Large", Label: "large", Longest: 1024, Suffix: "b"},
	{Name: "Large 1600", Label: "large1600", Longest: 1600, Suffix: "h"},
	{Name: "Large 2048", Label: "large2048", Longest: 2048, Suffix: "k"},
	{Name: "Original", Label: "ori", Suffix: "o"},
}

var labelAliases = map[string]string{
	"original":  "ori",
	"medium640": "medium",
}

// Sizes returns the catalog ordered from smallest to largest
func Sizes() []Size {
	out := make([]Size, len(sizes))
	copy(out, sizes)
	return out
}

// SizeByLabel looks up a size by its short label
func SizeByLabel(label string) (Size, bool) {
	if alias, ok := labelAliases[label]; ok {
		label = alias
	}
	for _, s := range sizes {
		if s.Label == label {
			return s, true
		}
	}
	return Size{}, false
}

// SizeByName looks up a size by the label flickr.photos.getSizes reports
func SizeByName(name string) (Size, bool) {
	for _, s := range sizes {
		if s.Name == name {
			return s, true
		}
	}
	return Size{}, false
}

// MustSize is SizeByLabel for labels known at compile time
func MustSize(label string) Size {
	s, ok := SizeByLabel(label)
	if !ok {
		panic(fmt.Sprintf("flickr: unknown size %q", label))
	}
	return s
}

// BuildSourceURL returns the static image URL of a photo rendition.
// An empty format defaults to jpg.
func BuildSourceURL(farm, server, photoID, secret string, size Size, format string) string {
	if format == "" {
		format = "jpg"
	}
	suffix := ""
	if size.Suffix != "" {
		suffix = "_" + size.Suffix
	}
	return fmt.Sprintf("https://farm%s.staticflickr.com/%s/%s_%s%s.%s",
		farm, server, photoID, secret, suffix, format)
}
