package flickr

import (
	"strconv"
	"strings"
	"time"
)

const takenLayout = "2006-01-02 15:04:05"

type ParseTimeError struct {
	s string
}

func (e *ParseTimeError) Error() string {
	return "invalid time: " + e.s
}

// ParseTime accepts either a "2006-01-02 15:04:05" datetime or Unix seconds,
// both interpreted in the local timezone.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(takenLayout, s, time.Local)
	if err == nil {
		return t, nil
	}

	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, &ParseTimeError{s}
	}
	return time.Unix(secs, 0), nil
}
