// Package audio defines the AudioBackend capability interface and its
// interchangeable implementations: a local speaker, a remote MPD daemon and
// a no-op backend used in degraded mode and in tests.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBackendFailure wraps every error returned by a backend operation.
var ErrBackendFailure = errors.New("audio backend failure")

var errNothingLoaded = errors.New("no track loaded")

// Backend is the command interface to the audio output.
//
// Implementations are driven by a single caller at a time; they do not
// need to be safe for concurrent command calls, but Finished may be read
// from another goroutine.
type Backend interface {
	Name() string
	// Play starts path. token identifies this playback in Finished.
	Play(ctx context.Context, path string, token uint64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, level int) error
	Position(ctx context.Context) (time.Duration, error)
	// Finished receives the token of a Play whose track reached its
	// natural end. Tokens of superseded plays may still arrive.
	Finished() <-chan uint64
	Close() error
}

// Operation names used in errors and by the no-op backend call log.
const (
	OpPlay      = "play"
	OpPause     = "pause"
	OpResume    = "resume"
	OpStop      = "stop"
	OpSeek      = "seek"
	OpSetVolume = "set_volume"
	OpPosition  = "position"
)

func failure(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrBackendFailure, backend, op, err)
}

// ClampVolume clamps level to [0,100].
func ClampVolume(level int) int {
	return min(max(level, 0), 100)
}
