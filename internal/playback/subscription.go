package playback

import "time"

const eventBufferSize = 16

// Subscription provides event channels for an in-process subscriber.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PlaylistChanged <-chan PlaylistChange
	PositionChanged <-chan PositionChange
	VolumeChanged   <-chan VolumeChange
	ModeChanged     <-chan ModeChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	trackCh    chan TrackChange
	playlistCh chan PlaylistChange
	positionCh chan PositionChange
	volumeCh   chan VolumeChange
	modeCh     chan ModeChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		playlistCh: make(chan PlaylistChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		volumeCh:   make(chan VolumeChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.PlaylistChanged = s.playlistCh
	s.PositionChanged = s.positionCh
	s.VolumeChanged = s.volumeCh
	s.ModeChanged = s.modeCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// publish translates a committed change into typed events.
func (s *Subscription) publish(c Change) {
	prev, cur := c.Previous, c.Status

	if c.Type == EventPlaylistLoaded {
		s.sendPlaylist(PlaylistChange{
			ID:    cur.ActivePlaylistID,
			Title: cur.ActivePlaylistTitle,
			Count: cur.TrackCount,
		})
	}
	if prev.State() != cur.State() {
		s.sendState(StateChange{Previous: prev.State(), Current: cur.State()})
	}
	if c.TrackChanged {
		s.sendTrack(TrackChange{
			Previous:      prev.ActiveTrack,
			Current:       cur.ActiveTrack,
			PreviousIndex: indexOf(prev),
			Index:         indexOf(cur),
		})
	}
	if prev.Volume != cur.Volume {
		s.sendVolume(VolumeChange{Volume: cur.Volume})
	}
	if prev.RepeatMode != cur.RepeatMode || prev.ShuffleEnabled != cur.ShuffleEnabled ||
		prev.AutoAdvanceEnabled != cur.AutoAdvanceEnabled {
		s.sendMode(ModeChange{
			RepeatMode:  cur.RepeatMode,
			Shuffle:     cur.ShuffleEnabled,
			AutoAdvance: cur.AutoAdvanceEnabled,
		})
	}
	if c.Type == EventPlaybackState && cur.State().IsActive() && !c.TrackChanged &&
		prev.State() == cur.State() {
		s.sendPosition(time.Duration(cur.PositionMs) * time.Millisecond)
	}
}

func indexOf(st Status) int {
	if st.TrackIndex == nil {
		return -1
	}
	return *st.TrackIndex
}

// sendState sends a state change event (non-blocking).
func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendTrack sends a track change event (non-blocking).
func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

// sendPlaylist sends a playlist change event (non-blocking).
func (s *Subscription) sendPlaylist(e PlaylistChange) {
	select {
	case s.playlistCh <- e:
	default:
	}
}

// sendPosition sends a position change event (non-blocking).
func (s *Subscription) sendPosition(pos time.Duration) {
	select {
	case s.positionCh <- PositionChange{Position: pos}:
	default:
	}
}

// sendVolume sends a volume change event (non-blocking).
func (s *Subscription) sendVolume(e VolumeChange) {
	select {
	case s.volumeCh <- e:
	default:
	}
}

// sendMode sends a mode change event (non-blocking).
func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

// sendError sends an error event (non-blocking).
func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
