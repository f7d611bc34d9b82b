package indicator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/playback"
)

// DefaultStartDuration is how long the starting directive shows before
// playing replaces it.
const DefaultStartDuration = 1500 * time.Millisecond

// Driver applies directives to every sink as playback changes.
type Driver struct {
	sinks      []Sink
	brightness float64
	startFor   time.Duration
	log        zerolog.Logger
}

// NewDriver creates a driver. A non-positive startFor uses
// DefaultStartDuration.
func NewDriver(sinks []Sink, brightness float64, startFor time.Duration, log zerolog.Logger) *Driver {
	if startFor <= 0 {
		startFor = DefaultStartDuration
	}
	return &Driver{
		sinks:      sinks,
		brightness: brightness,
		startFor:   startFor,
		log:        log.With().Str("component", "indicator").Logger(),
	}
}

// Run applies the directive for initial, then follows sub until ctx is
// done or the subscription closes.
func (d *Driver) Run(ctx context.Context, initial playback.State, sub *playback.Subscription) {
	state := initial
	d.apply(directiveFor(state))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	starting := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.StateChanged:
			state = e.Current
			if e.Previous == playback.StateStopped && e.Current == playback.StatePlaying {
				d.apply(Starting)
				timer.Reset(d.startFor)
				starting = true
				continue
			}
			starting = false
			d.apply(directiveFor(state))
		case <-sub.TrackChanged:
			if state == playback.StatePlaying && !starting {
				d.apply(Starting)
				timer.Reset(d.startFor)
				starting = true
			}
		case <-sub.Error:
			d.apply(Error)
			timer.Reset(d.startFor)
			starting = true
		case <-timer.C:
			starting = false
			d.apply(directiveFor(state))
		}
	}
}

func directiveFor(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return Playing
	case playback.StatePaused:
		return Paused
	default:
		return Stopped
	}
}

func (d *Driver) apply(name string) {
	dir, err := NewDirective(name, d.brightness)
	if err != nil {
		d.log.Error().Err(err).Msg("Bad directive")
		return
	}
	var errs []error
	for _, s := range d.sinks {
		if err := s.Apply(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		d.log.Warn().Err(err).Str("directive", name).Msg("Indicator sink failed")
	}
}
