// Package mpris exposes the coordinator on the desktop session bus so
// media keys and desktop widgets act as one more command source.
package mpris

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
)

// ErrUnsupported is returned by New on platforms without a session bus.
var ErrUnsupported = errors.New("mpris not supported")

// Player is the coordinator surface the adapter drives.
type Player interface {
	Play(ctx context.Context) bool
	Pause(ctx context.Context) bool
	TogglePause(ctx context.Context) bool
	Stop(ctx context.Context) bool
	NextTrack(ctx context.Context) bool
	PreviousTrack(ctx context.Context) bool
	Seek(ctx context.Context, position time.Duration) bool
	SetVolume(ctx context.Context, level int) bool
	SetRepeatMode(ctx context.Context, mode playlist.RepeatMode) bool
	SetShuffle(ctx context.Context, enabled bool) bool
	Status() playback.Status
	Subscribe() *playback.Subscription
}
