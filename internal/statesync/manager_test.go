package statesync

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/room"
)

// inbox is a Deliverer that records events and can be made to refuse them.
type inbox struct {
	mu     sync.Mutex
	events []Event
	full   bool
}

func (b *inbox) Deliver(e Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return false
	}
	b.events = append(b.events, e)
	return true
}

func (b *inbox) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

func newTestManager() *Manager {
	return New(zerolog.Nop())
}

func TestManager_NextSequence_Monotonic(t *testing.T) {
	m := newTestManager()

	var wg sync.WaitGroup
	seen := make(chan uint64, 1000)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				seen <- m.NextSequence()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for s := range seen {
		assert.False(t, unique[s], "sequence %d issued twice", s)
		unique[s] = true
	}
	assert.Len(t, unique, 1000)
	assert.Equal(t, uint64(1000), m.GlobalSequence())
}

func TestManager_Subscribe_InvalidRoom(t *testing.T) {
	m := newTestManager()

	for _, name := range []string{"", "playlist:", "nfc:", "lobby", "Playlists"} {
		err := m.Subscribe("c1", name)
		assert.ErrorIs(t, err, room.ErrInvalidRoom, "room %q", name)
	}
	assert.Empty(t, m.Rooms())
	assert.Equal(t, 0, m.Sessions())
}

func TestManager_Subscribe_Idempotent(t *testing.T) {
	m := newTestManager()
	box := &inbox{}
	m.Register("c1", box)

	require.NoError(t, m.Subscribe("c1", room.Global))
	require.NoError(t, m.Subscribe("c1", room.Global))

	assert.Equal(t, []string{"c1"}, m.Members(room.Global))
	assert.Equal(t, []RoomInfo{{Name: room.Global, Members: 1}}, m.Rooms())

	_, err := m.Broadcast(room.Global, playback.EventVolumeChanged, 10)
	require.NoError(t, err)
	assert.Len(t, box.Events(), 1, "a duplicate subscription must not duplicate delivery")
}

func TestManager_UnsubscribeClient_Idempotent(t *testing.T) {
	m := newTestManager()
	m.Register("c1", &inbox{})
	require.NoError(t, m.Subscribe("c1", room.Global))
	require.NoError(t, m.Subscribe("c1", room.Playlist(3)))

	m.UnsubscribeClient("c1")
	assert.Empty(t, m.Rooms())
	assert.Empty(t, m.SessionRooms("c1"))

	m.UnsubscribeClient("c1")
	m.UnsubscribeClient("never-seen")
	assert.Empty(t, m.Rooms())
}

func TestManager_Unsubscribe_DestroysEmptyRoom(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Subscribe("c1", "nfc:04a2"))
	require.NoError(t, m.Subscribe("c2", "nfc:04a2"))

	require.NoError(t, m.Unsubscribe("c1", "nfc:04a2"))
	assert.Equal(t, []string{"c2"}, m.Members("nfc:04a2"))

	require.NoError(t, m.Unsubscribe("c2", "nfc:04a2"))
	assert.Empty(t, m.Rooms())

	assert.ErrorIs(t, m.Unsubscribe("c2", "nfc:"), room.ErrInvalidRoom)
}

func TestManager_Broadcast_InvalidRoomConsumesNoSequence(t *testing.T) {
	m := newTestManager()
	before := m.GlobalSequence()

	_, err := m.Broadcast("playlist:", playback.EventPlaybackState, nil)
	assert.ErrorIs(t, err, room.ErrInvalidRoom)
	assert.Equal(t, before, m.GlobalSequence())
}

func TestManager_Broadcast_OnlyToRoomMembers(t *testing.T) {
	m := newTestManager()
	a, b := &inbox{}, &inbox{}
	m.Register("a", a)
	m.Register("b", b)
	require.NoError(t, m.Subscribe("a", room.Global))
	require.NoError(t, m.Subscribe("b", room.Playlist(1)))

	e, err := m.Broadcast(room.Global, playback.EventPlaybackState, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Sequence)
	assert.Equal(t, room.Global, e.Room)
	assert.False(t, e.Timestamp.IsZero())

	assert.Equal(t, []Event{e}, a.Events())
	assert.Empty(t, b.Events())
}

func TestManager_Broadcast_PerRoomOrderIsStrictAndGapFree(t *testing.T) {
	m := newTestManager()
	box := &inbox{}
	m.Register("c1", box)
	require.NoError(t, m.Subscribe("c1", room.Global))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := m.Broadcast(room.Global, playback.EventVolumeChanged, nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	events := box.Events()
	require.Len(t, events, 400)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Sequence, "event %d", i)
	}
}

func TestManager_Broadcast_DropsSlowConsumer(t *testing.T) {
	m := newTestManager()
	slow, fast := &inbox{full: true}, &inbox{}
	m.Register("slow", slow)
	m.Register("fast", fast)
	for _, id := range []string{"slow", "fast"} {
		require.NoError(t, m.Subscribe(id, room.Global))
		require.NoError(t, m.Subscribe(id, room.Playlist(2)))
	}

	_, err := m.Broadcast(room.Global, playback.EventPlaybackState, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"fast"}, m.Members(room.Global))
	assert.Equal(t, []string{"fast"}, m.Members(room.Playlist(2)))
	assert.Len(t, fast.Events(), 1)
	assert.Equal(t, 1, m.Sessions())
}

func TestManager_Unregister(t *testing.T) {
	m := newTestManager()
	m.Register("c1", &inbox{})
	require.NoError(t, m.Subscribe("c1", room.Global))

	m.Unregister("c1")
	assert.Empty(t, m.Rooms())
	assert.Equal(t, 0, m.Sessions())
}

func TestDelivererFunc(t *testing.T) {
	var got Event
	d := DelivererFunc(func(e Event) bool {
		got = e
		return true
	})
	assert.True(t, d.Deliver(Event{Sequence: 9}))
	assert.Equal(t, uint64(9), got.Sequence)
}

func TestPublisher_Notify(t *testing.T) {
	idx := 1
	tests := []struct {
		name         string
		change       playback.Change
		wantGlobal   int
		wantPlaylist int
	}{
		{
			name:       "volume goes to global only",
			change:     playback.Change{Type: playback.EventVolumeChanged, Status: playback.Status{ActivePlaylistID: 5}},
			wantGlobal: 1,
		},
		{
			name: "track change also goes to playlist room",
			change: playback.Change{
				Type:         playback.EventTrackChanged,
				Status:       playback.Status{ActivePlaylistID: 5, TrackIndex: &idx, TrackCount: 3},
				TrackChanged: true,
			},
			wantGlobal:   1,
			wantPlaylist: 1,
		},
		{
			name:       "track change without playlist",
			change:     playback.Change{Type: playback.EventTrackChanged, TrackChanged: true},
			wantGlobal: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager()
			global, pl := &inbox{}, &inbox{}
			m.Register("g", global)
			m.Register("p", pl)
			require.NoError(t, m.Subscribe("g", room.Global))
			require.NoError(t, m.Subscribe("p", room.Playlist(5)))

			NewPublisher(m).Notify(tt.change)

			assert.Len(t, global.Events(), tt.wantGlobal)
			assert.Len(t, pl.Events(), tt.wantPlaylist)
			for _, e := range global.Events() {
				assert.Equal(t, tt.change.Type, e.Type)
				assert.Equal(t, tt.change.Status, e.Payload)
			}
		})
	}
}

func TestPublisher_PlaylistDeleted(t *testing.T) {
	m := newTestManager()
	box := &inbox{}
	m.Register("c1", box)
	require.NoError(t, m.Subscribe("c1", room.Global))
	require.NoError(t, m.Subscribe("c1", room.Playlist(4)))

	NewPublisher(m).PlaylistDeleted(4)

	events := box.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventPlaylistDeleted, events[0].Type)
	assert.Less(t, events[0].Sequence, events[1].Sequence)
}
