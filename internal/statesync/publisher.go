package statesync

import (
	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/room"
)

// Event types published outside the coordinator.
const (
	EventNFCScanned      = "nfc_scanned"
	EventNFCUnknownTag   = "nfc_unknown_tag"
	EventPlaylistDeleted = "playlist_deleted"
)

// Publisher turns coordinator changes into broadcasts. Every change goes
// to the global room; changes that cross a track boundary also go to the
// room of the active playlist.
type Publisher struct {
	m *Manager
}

// NewPublisher creates a publisher broadcasting through m.
func NewPublisher(m *Manager) *Publisher {
	return &Publisher{m: m}
}

// Notify implements playback.Notifier.
func (p *Publisher) Notify(c playback.Change) {
	if _, err := p.m.Broadcast(room.Global, c.Type, c.Status); err != nil {
		p.m.log.Error().Err(err).Str("type", c.Type).Msg("Broadcast failed")
	}
	if !c.TrackChanged || c.Status.ActivePlaylistID == 0 {
		return
	}
	if _, err := p.m.Broadcast(room.Playlist(c.Status.ActivePlaylistID), c.Type, c.Status); err != nil {
		p.m.log.Error().Err(err).Str("type", c.Type).Msg("Broadcast failed")
	}
}

// PlaylistDeleted announces that a playlist no longer exists.
func (p *Publisher) PlaylistDeleted(id int64) {
	payload := map[string]int64{"playlist_id": id}
	for _, name := range []string{room.Global, room.Playlist(id)} {
		if _, err := p.m.Broadcast(name, EventPlaylistDeleted, payload); err != nil {
			p.m.log.Error().Err(err).Str("room", name).Msg("Broadcast failed")
		}
	}
}

var _ playback.Notifier = (*Publisher)(nil)
