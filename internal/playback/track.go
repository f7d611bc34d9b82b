package playback

import (
	"time"

	"github.com/llehouerou/musicbox/internal/playlist"
)

// Track is the client-facing view of a track.
// This is a copy of the data, not a reference to playlist.Track.
type Track struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	TrackNumber int    `json:"track_number,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func trackFrom(t *playlist.Track) *Track {
	if t == nil {
		return nil
	}
	return &Track{
		ID:          t.ID,
		Path:        t.Path,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		DurationMs:  t.Duration.Milliseconds(),
	}
}

// Duration returns the track duration.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}
