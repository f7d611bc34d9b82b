package playback

// Status is an immutable snapshot of the playback state. Field names are
// the wire names clients render from.
type Status struct {
	IsPlaying           bool   `json:"is_playing"`
	IsPaused            bool   `json:"is_paused"`
	Volume              int    `json:"volume"`
	PositionMs          int64  `json:"position_ms"`
	DurationMs          int64  `json:"duration_ms"`
	ActivePlaylistID    int64  `json:"active_playlist_id"`
	ActivePlaylistTitle string `json:"active_playlist_title"`
	ActiveTrack         *Track `json:"active_track"`
	// TrackIndex is nil when TrackCount is 0.
	TrackIndex         *int   `json:"track_index"`
	TrackCount         int    `json:"track_count"`
	RepeatMode         string `json:"repeat_mode"`
	ShuffleEnabled     bool   `json:"shuffle_enabled"`
	AutoAdvanceEnabled bool   `json:"auto_advance_enabled"`
}

// State returns the playback state encoded in the snapshot.
func (s Status) State() State {
	switch {
	case s.IsPlaying:
		return StatePlaying
	case s.IsPaused:
		return StatePaused
	default:
		return StateStopped
	}
}

// State is the position of the coordinator's state machine.
//
//	Stopped --Play--> Playing --Pause--> Paused --Play--> Playing
//	any --Stop--> Stopped (position reset)
//
// Play while Playing and Pause while Paused succeed without effect. Pause
// while Stopped fails. Track moves keep the state, except running off the
// last track with repeat off, which stops.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

var stateNames = [...]string{
	StateStopped: "stopped",
	StatePlaying: "playing",
	StatePaused:  "paused",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsActive reports whether a track is loaded in the backend.
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
