package playback

import "time"

// Event types carried by Change and broadcast to clients.
const (
	EventPlaybackState  = "playback_state"
	EventTrackChanged   = "track_changed"
	EventVolumeChanged  = "volume_changed"
	EventModeChanged    = "mode_changed"
	EventPlaylistLoaded = "playlist_loaded"
)

// Change describes one committed mutation. Exactly one Change is produced
// per successful, state-changing command.
type Change struct {
	Type     string
	Previous Status
	Status   Status
	// TrackChanged is set when the command crossed a track boundary:
	// another track, another playlist, or a replay of the same track.
	TrackChanged bool
}

// Notifier receives committed changes.
//
// Notify is called while the coordinator still holds its exclusion slot,
// so changes arrive in commit order. It must not block and must not call
// back into the coordinator's commands.
type Notifier interface {
	Notify(c Change)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(c Change)

// Notify calls f(c).
func (f NotifierFunc) Notify(c Change) { f(c) }

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the active track changes or is replayed.
type TrackChange struct {
	Previous      *Track
	Current       *Track
	PreviousIndex int
	Index         int
}

// PlaylistChange is emitted when a playlist is activated.
type PlaylistChange struct {
	ID    int64
	Title string
	Count int
}

// ModeChange is emitted when repeat, shuffle or auto-advance changes.
type ModeChange struct {
	RepeatMode  string
	Shuffle     bool
	AutoAdvance bool
}

// VolumeChange is emitted when the volume changes.
type VolumeChange struct {
	Volume int
}

// PositionChange is emitted when a seek occurs.
type PositionChange struct {
	Position time.Duration
}

// ErrorEvent is emitted when a command fails. Failures are never
// broadcast to clients; in-process listeners such as the indicator use
// them to signal the error.
type ErrorEvent struct {
	Operation string // e.g., "play", "next"
	Err       error
}
