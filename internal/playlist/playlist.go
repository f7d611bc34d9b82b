// Package playlist holds the tracks of the active playlist and decides
// which one plays next.
package playlist

import "time"

// Track is one entry of a stored playlist.
type Track struct {
	ID          int64  // 0 until persisted
	Path        string // file path, or an MPD URI relative to its music dir
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
}

// Tracklist is an ordered, immutable-by-convention list of tracks. Methods
// never modify the receiver.
type Tracklist []Track

// At returns the track at index, or nil if index is out of range.
func (l Tracklist) At(index int) *Track {
	if index < 0 || index >= len(l) {
		return nil
	}
	return &l[index]
}

// Clone returns a copy that shares no storage with l. The clone of an
// empty list is empty, not nil.
func (l Tracklist) Clone() Tracklist {
	return append(make(Tracklist, 0, len(l)), l...)
}

// Duration sums the known track durations.
func (l Tracklist) Duration() time.Duration {
	var total time.Duration
	for _, t := range l {
		total += t.Duration
	}
	return total
}
