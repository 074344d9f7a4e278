package flickr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSourceURL(t *testing.T) {
	large := MustSize("large")
	url := BuildSourceURL("66", "1234", "555", "abc", large, "jpg")
	assert.Equal(t, "https://farm66.staticflickr.com/1234/555_abc_b.jpg", url)
	assert.True(t, strings.HasSuffix(url, "555_abc_b.jpg"))

	medium500 := MustSize("medium500")
	url = BuildSourceURL("66", "1234", "555", "abc", medium500, "")
	assert.True(t, strings.HasSuffix(url, "555_abc.jpg"), url)
}

func TestSizeByLabel(t *testing.T) {
	s, ok := SizeByLabel("thumb")
	require.True(t, ok)
	assert.Equal(t, "Thumbnail", s.Name)
	assert.Equal(t, 100, s.Longest)

	s, ok = SizeByLabel("original")
	require.True(t, ok)
	assert.Equal(t, "ori", s.Label)

	s, ok = SizeByLabel("medium640")
	require.True(t, ok)
	assert.Equal(t, "Medium 640", s.Name)

	_, ok = SizeByLabel("gigantic")
	assert.False(t, ok)
}

func TestSizeByName(t *testing.T) {
	s, ok := SizeByName("Large 2048")
	require.True(t, ok)
	assert.Equal(t, "k", s.Suffix)

	_, ok = SizeByName("Video Player")
	assert.False(t, ok)
}

func TestSizes_ReturnsCopy(t *testing.T) {
	all := Sizes()
	require.Len(t, all, 12)
	all[0].Label = "changed"
	s, ok := SizeByName("Square")
	require.True(t, ok)
	assert.Equal(t, "square", s.Label)
}
