//go:build linux

package mpris

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/musicbox/internal/audio"
	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
)

type fakePlayer struct {
	status playback.Status
	calls  []string
	seek   time.Duration
	volume int
	mode   playlist.RepeatMode
	reject bool
}

func (p *fakePlayer) record(name string) bool {
	p.calls = append(p.calls, name)
	return !p.reject
}

func (p *fakePlayer) Play(context.Context) bool          { return p.record("play") }
func (p *fakePlayer) Pause(context.Context) bool         { return p.record("pause") }
func (p *fakePlayer) TogglePause(context.Context) bool   { return p.record("toggle") }
func (p *fakePlayer) Stop(context.Context) bool          { return p.record("stop") }
func (p *fakePlayer) NextTrack(context.Context) bool     { return p.record("next") }
func (p *fakePlayer) PreviousTrack(context.Context) bool { return p.record("previous") }
func (p *fakePlayer) Status() playback.Status            { return p.status }
func (p *fakePlayer) Subscribe() *playback.Subscription  { return nil }

func (p *fakePlayer) Seek(_ context.Context, pos time.Duration) bool {
	p.seek = pos
	return p.record("seek")
}

func (p *fakePlayer) SetVolume(_ context.Context, level int) bool {
	p.volume = min(100, max(0, level))
	return p.record("volume")
}

func (p *fakePlayer) SetRepeatMode(_ context.Context, mode playlist.RepeatMode) bool {
	p.mode = mode
	return p.record("repeat")
}

func (p *fakePlayer) SetShuffle(context.Context, bool) bool { return p.record("shuffle") }

func playingStatus() playback.Status {
	idx := 1
	return playback.Status{
		IsPlaying:  true,
		Volume:     40,
		PositionMs: 10_000,
		ActiveTrack: &playback.Track{
			Path: "/music/b.mp3", Title: "B", Artist: "Band", Album: "LP",
			TrackNumber: 2, DurationMs: 180_000,
		},
		TrackIndex: &idx,
		TrackCount: 3,
		RepeatMode: "all",
	}
}

func TestPlayerAdapter_Commands(t *testing.T) {
	p := &fakePlayer{}
	a := &playerAdapter{player: p}

	require.NoError(t, a.Play())
	require.NoError(t, a.Pause())
	require.NoError(t, a.PlayPause())
	require.NoError(t, a.Next())
	require.NoError(t, a.Previous())
	require.NoError(t, a.Stop())

	assert.Equal(t, []string{"play", "pause", "toggle", "next", "previous", "stop"}, p.calls)
}

func TestPlayerAdapter_RejectedCommand(t *testing.T) {
	a := &playerAdapter{player: &fakePlayer{reject: true}}
	assert.ErrorIs(t, a.Next(), errRejected)
}

func TestPlayerAdapter_Seek(t *testing.T) {
	p := &fakePlayer{status: playingStatus()}
	a := &playerAdapter{player: p}

	require.NoError(t, a.Seek(types.Microseconds(5*time.Second/time.Microsecond)))
	assert.Equal(t, 15*time.Second, p.seek)

	id := formatTrackID("/music/b.mp3")
	require.NoError(t, a.SetPosition(id, types.Microseconds(time.Minute/time.Microsecond)))
	assert.Equal(t, time.Minute, p.seek)

	p.seek = 0
	require.NoError(t, a.SetPosition(formatTrackID("/music/other.mp3"), 1))
	assert.Zero(t, p.seek, "stale track id is ignored")
}

func TestPlayerAdapter_Volume(t *testing.T) {
	p := &fakePlayer{status: playingStatus()}
	a := &playerAdapter{player: p}

	v, err := a.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v, 1e-9)

	require.NoError(t, a.SetVolume(1.7))
	assert.Equal(t, 100, p.volume)
	require.NoError(t, a.SetVolume(0.25))
	assert.Equal(t, 25, p.volume)
}

func TestPlayerAdapter_Status(t *testing.T) {
	tests := []struct {
		name   string
		status playback.Status
		want   types.PlaybackStatus
	}{
		{"playing", playback.Status{IsPlaying: true}, types.PlaybackStatusPlaying},
		{"paused", playback.Status{IsPaused: true}, types.PlaybackStatusPaused},
		{"stopped", playback.Status{}, types.PlaybackStatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &playerAdapter{player: &fakePlayer{status: tt.status}}
			got, err := a.PlaybackStatus()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlayerAdapter_Metadata(t *testing.T) {
	a := &playerAdapter{player: &fakePlayer{status: playingStatus()}}

	meta, err := a.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "B", meta.Title)
	assert.Equal(t, []string{"Band"}, meta.Artist)
	assert.Equal(t, types.Microseconds(180_000_000), meta.Length)
	assert.Equal(t, formatTrackID("/music/b.mp3"), string(meta.TrackId))

	pos, err := a.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), pos)

	empty := &playerAdapter{player: &fakePlayer{}}
	meta, err = empty.Metadata()
	require.NoError(t, err)
	assert.Empty(t, meta.Title)
}

func TestPlayerAdapter_LoopStatus(t *testing.T) {
	p := &fakePlayer{status: playingStatus()}
	a := &playerAdapter{player: p}

	got, err := a.LoopStatus()
	require.NoError(t, err)
	assert.Equal(t, types.LoopStatusPlaylist, got)

	require.NoError(t, a.SetLoopStatus(types.LoopStatusTrack))
	assert.Equal(t, playlist.RepeatOne, p.mode)
	require.NoError(t, a.SetLoopStatus(types.LoopStatusNone))
	assert.Equal(t, playlist.RepeatOff, p.mode)
}

func TestPlayerAdapter_Capabilities(t *testing.T) {
	a := &playerAdapter{player: &fakePlayer{}}
	canNext, err := a.CanGoNext()
	require.NoError(t, err)
	assert.False(t, canNext)

	a = &playerAdapter{player: &fakePlayer{status: playingStatus()}}
	canPlay, err := a.CanPlay()
	require.NoError(t, err)
	assert.True(t, canPlay)
}

func TestFormatTrackID_Stable(t *testing.T) {
	assert.Equal(t, formatTrackID("/a.mp3"), formatTrackID("/a.mp3"))
	assert.NotEqual(t, formatTrackID("/a.mp3"), formatTrackID("/b.mp3"))
	assert.Contains(t, formatTrackID("/a.mp3"), "/org/mpris/MediaPlayer2/Track/")
}

type library struct{}

func (library) PlaylistTracks(int64) (string, []playlist.Track, error) {
	return "Kids", []playlist.Track{
		{ID: 1, Path: "/music/a.mp3", Title: "A", Duration: time.Minute},
		{ID: 2, Path: "/music/b.mp3", Title: "B", Duration: time.Minute},
	}, nil
}

type prefs struct{}

func (prefs) LoadPrefs() (playback.Prefs, bool, error) { return playback.Prefs{}, false, nil }
func (prefs) SavePrefs(playback.Prefs) error           { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]int
	seek  types.Microseconds
}

func (r *recordingNotifier) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
	return nil
}

func (r *recordingNotifier) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *recordingNotifier) OnPlayback() error { return r.record("playback") }
func (r *recordingNotifier) OnTitle() error    { return r.record("title") }
func (r *recordingNotifier) OnVolume() error   { return r.record("volume") }
func (r *recordingNotifier) OnOptions() error  { return r.record("options") }

func (r *recordingNotifier) OnSeek(pos types.Microseconds) error {
	r.mu.Lock()
	r.seek = pos
	r.mu.Unlock()
	return r.record("seek")
}

func TestAdapter_FollowEmitsPropertyChanges(t *testing.T) {
	c := playback.New(audio.NewNoop(), library{}, prefs{}, playback.NotifierFunc(func(playback.Change) {}),
		playback.Options{Log: zerolog.Nop()})
	defer c.Close()
	ctx := context.Background()

	a := &Adapter{log: zerolog.Nop(), done: make(chan struct{})}
	n := &recordingNotifier{calls: map[string]int{}}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		a.follow(c.Subscribe(), n)
	}()

	waitFor := func(name string, want int) {
		t.Helper()
		require.Eventually(t, func() bool { return n.count(name) >= want },
			5*time.Second, 5*time.Millisecond, "%s notifications", name)
	}

	require.True(t, c.PlayPlaylist(ctx, 1))
	waitFor("playback", 1)
	waitFor("title", 1)
	waitFor("options", 1)

	require.True(t, c.NextTrack(ctx))
	waitFor("title", 2)

	require.True(t, c.SetVolume(ctx, 13))
	waitFor("volume", 1)

	require.True(t, c.SetRepeatMode(ctx, playlist.RepeatAll))
	waitFor("options", 2)

	require.True(t, c.Seek(ctx, 30*time.Second))
	waitFor("seek", 1)
	n.mu.Lock()
	assert.InDelta(t, float64(30*time.Second/time.Microsecond), float64(n.seek), float64(time.Second/time.Microsecond))
	n.mu.Unlock()

	require.True(t, c.Pause(ctx))
	waitFor("playback", 2)

	c.Close()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop when the subscription closed")
	}
}

func TestAdapter_FollowStopsOnClose(t *testing.T) {
	c := playback.New(audio.NewNoop(), library{}, prefs{}, playback.NotifierFunc(func(playback.Change) {}),
		playback.Options{Log: zerolog.Nop()})
	defer c.Close()

	a := &Adapter{log: zerolog.Nop(), done: make(chan struct{})}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		a.follow(c.Subscribe(), &recordingNotifier{calls: map[string]int{}})
	}()

	close(a.done)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop")
	}
}
