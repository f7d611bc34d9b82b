//go:build linux

package mpris

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
)

// errRejected is returned to the bus when the coordinator refuses a
// command.
var errRejected = errors.New("command rejected")

// Adapter serves org.mpris.MediaPlayer2.musicbox.
type Adapter struct {
	server *server.Server
	log    zerolog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// propertyNotifier emits PropertiesChanged and Seeked on the player
// interface. Satisfied by the go-mpris-server player event handler.
type propertyNotifier interface {
	OnPlayback() error
	OnTitle() error
	OnVolume() error
	OnOptions() error
	OnSeek(position types.Microseconds) error
}

// New creates the adapter and starts serving in the background.
// Coordinator changes are forwarded to the bus until Close.
func New(player Player, log zerolog.Logger) (*Adapter, error) {
	a := &Adapter{
		log:  log.With().Str("component", "mpris").Logger(),
		done: make(chan struct{}),
	}
	a.server = server.NewServer("musicbox", &rootAdapter{}, &playerAdapter{player: player})
	handler := events.NewEventHandler(a.server)

	go func() {
		if err := a.server.Listen(); err != nil {
			a.log.Warn().Err(err).Msg("MPRIS server stopped")
		}
	}()

	sub := player.Subscribe()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.follow(sub, handler.Player)
	}()
	return a, nil
}

// Close stops forwarding changes and releases the bus name.
func (a *Adapter) Close() error {
	close(a.done)
	a.wg.Wait()
	return a.server.Stop()
}

// follow maps coordinator events onto property notifications until the
// adapter or the subscription closes.
func (a *Adapter) follow(sub *playback.Subscription, n propertyNotifier) {
	for {
		var err error
		select {
		case <-a.done:
			return
		case <-sub.Done:
			return
		case <-sub.StateChanged:
			err = n.OnPlayback()
		case <-sub.TrackChanged:
			err = n.OnTitle()
		case <-sub.PlaylistChanged:
			// CanGoNext and friends follow the track count.
			err = n.OnOptions()
		case <-sub.VolumeChanged:
			err = n.OnVolume()
		case <-sub.ModeChanged:
			err = n.OnOptions()
		case e := <-sub.PositionChanged:
			err = n.OnSeek(types.Microseconds(e.Position.Microseconds()))
		}
		if err != nil {
			a.log.Debug().Err(err).Msg("emit properties changed")
		}
	}
}

type rootAdapter struct{}

func (r *rootAdapter) Raise() error            { return nil }
func (r *rootAdapter) Quit() error             { return nil }
func (r *rootAdapter) CanQuit() (bool, error)  { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Musicbox", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// loop status and shuffle extensions. Bus calls carry no context, so each
// command gets a background one; the coordinator bounds it.
type playerAdapter struct {
	player Player
}

func result(ok bool) error {
	if !ok {
		return errRejected
	}
	return nil
}

func (p *playerAdapter) Next() error      { return result(p.player.NextTrack(context.Background())) }
func (p *playerAdapter) Previous() error  { return result(p.player.PreviousTrack(context.Background())) }
func (p *playerAdapter) Pause() error     { return result(p.player.Pause(context.Background())) }
func (p *playerAdapter) PlayPause() error { return result(p.player.TogglePause(context.Background())) }
func (p *playerAdapter) Stop() error      { return result(p.player.Stop(context.Background())) }
func (p *playerAdapter) Play() error      { return result(p.player.Play(context.Background())) }

// Seek moves by a relative offset.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := time.Duration(p.player.Status().PositionMs) * time.Millisecond
	return result(p.player.Seek(context.Background(), pos+time.Duration(offset)*time.Microsecond))
}

// SetPosition seeks to an absolute position when trackID is current.
func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	st := p.player.Status()
	if st.ActiveTrack == nil || trackID != formatTrackID(st.ActiveTrack.Path) {
		return nil
	}
	return result(p.player.Seek(context.Background(), time.Duration(position)*time.Microsecond))
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.player.Status().State() {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	default:
		return types.PlaybackStatusStopped, nil
	}
}

func (p *playerAdapter) Rate() (float64, error)  { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error { return nil }
func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	t := p.player.Status().ActiveTrack
	if t == nil {
		return types.Metadata{}, nil
	}
	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(formatTrackID(t.Path)),
		Length:      types.Microseconds(t.Duration().Microseconds()),
		Title:       t.Title,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		ArtUrl:      CoverURL(t.Path),
	}
	if t.Artist != "" {
		meta.Artist = []string{t.Artist}
	}
	return meta, nil
}

// Volume maps 0..100 onto the MPRIS 0..1 range.
func (p *playerAdapter) Volume() (float64, error) {
	return float64(p.player.Status().Volume) / 100, nil
}

// SetVolume clamps out-of-range levels like every other source.
func (p *playerAdapter) SetVolume(v float64) error {
	level := int(math.Round(v * 100))
	return result(p.player.SetVolume(context.Background(), level))
}

func (p *playerAdapter) Position() (int64, error) {
	return (time.Duration(p.player.Status().PositionMs) * time.Millisecond).Microseconds(), nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.player.Status().TrackCount > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.player.Status().TrackCount > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.player.Status().TrackCount > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error)   { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)    { return true, nil }
func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	mode, err := playlist.ParseRepeatMode(p.player.Status().RepeatMode)
	if err != nil {
		return types.LoopStatusNone, err
	}
	switch mode {
	case playlist.RepeatOne:
		return types.LoopStatusTrack, nil
	case playlist.RepeatAll:
		return types.LoopStatusPlaylist, nil
	default:
		return types.LoopStatusNone, nil
	}
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	mode := playlist.RepeatOff
	switch status {
	case types.LoopStatusTrack:
		mode = playlist.RepeatOne
	case types.LoopStatusPlaylist:
		mode = playlist.RepeatAll
	case types.LoopStatusNone:
	}
	return result(p.player.SetRepeatMode(context.Background(), mode))
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.player.Status().ShuffleEnabled, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	return result(p.player.SetShuffle(context.Background(), shuffle))
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
