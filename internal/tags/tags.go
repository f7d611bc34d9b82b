// Package tags reads the metadata the import tool stores with each track.
package tags

import (
	"cmp"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/musicbox/internal/playlist"
)

// File extensions recognized as music.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtWAV  = ".wav"
	ExtOPUS = ".opus"
	ExtOGG  = ".ogg"
	ExtM4A  = ".m4a"
)

// Tag is the metadata of one music file.
type Tag struct {
	Path        string
	Title       string
	Artist      string // falls back to the album artist
	Album       string
	DiscNumber  int
	TrackNumber int

	// Duration is zero when the stream could not be decoded.
	Duration time.Duration
}

// Track converts t into a playlist entry.
func (t *Tag) Track() playlist.Track {
	return playlist.Track{
		Path:        t.Path,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		Duration:    t.Duration,
	}
}

// Compare groups files by directory, then orders each directory by disc,
// track number and path. Untagged files (disc and track 0) keep path
// order.
func Compare(a, b *Tag) int {
	return cmp.Or(
		strings.Compare(filepath.Dir(a.Path), filepath.Dir(b.Path)),
		cmp.Compare(a.DiscNumber, b.DiscNumber),
		cmp.Compare(a.TrackNumber, b.TrackNumber),
		strings.Compare(a.Path, b.Path),
	)
}

// IsMusicFile reports whether path has a music file extension.
func IsMusicFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtFLAC, ExtWAV, ExtOPUS, ExtOGG, ExtM4A:
		return true
	}
	return false
}

// leadingNumber parses "N" or "N/M" position frames and returns N.
func leadingNumber(s string) int {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "/")
	n, _ := strconv.Atoi(s)
	return n
}
