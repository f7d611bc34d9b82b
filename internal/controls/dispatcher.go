package controls

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/playback"
)

// Player is the part of the coordinator the controls drive.
type Player interface {
	Play(ctx context.Context) bool
	Pause(ctx context.Context) bool
	TogglePause(ctx context.Context) bool
	Stop(ctx context.Context) bool
	NextTrack(ctx context.Context) bool
	PreviousTrack(ctx context.Context) bool
	AdjustVolume(ctx context.Context, delta int) bool
	CycleRepeatMode(ctx context.Context) bool
	SetShuffle(ctx context.Context, enabled bool) bool
	Status() playback.Status
}

// Scanner handles tag scans.
type Scanner interface {
	HandleScan(ctx context.Context, tagID string) bool
}

// Dispatcher routes input events to the coordinator.
type Dispatcher struct {
	player   Player
	scanner  Scanner
	resolver *Resolver
	step     int
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher. step is the volume change per
// button press or encoder detent.
func NewDispatcher(player Player, scanner Scanner, resolver *Resolver, step int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		player:   player,
		scanner:  scanner,
		resolver: resolver,
		step:     step,
		log:      log.With().Str("component", "controls").Logger(),
	}
}

// Run dispatches events from src until it returns.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	events := make(chan Event)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Run(ctx, events)
	}()
	for {
		select {
		case e := <-events:
			d.Handle(ctx, e)
		case err := <-errc:
			return err
		}
	}
}

// Handle performs one event and reports whether its command succeeded.
func (d *Dispatcher) Handle(ctx context.Context, e Event) bool {
	var ok bool
	switch e.Kind {
	case KindPress:
		action := d.resolver.Resolve(e.Name)
		if action == "" {
			d.log.Debug().Str("input", e.Name).Msg("Unbound input")
			return false
		}
		ok = d.perform(ctx, action)
		d.log.Debug().Str("input", e.Name).Str("action", string(action)).Bool("ok", ok).Msg("Button")
	case KindRotate:
		ok = d.player.AdjustVolume(ctx, e.Delta*d.step)
		d.log.Debug().Int("delta", e.Delta).Bool("ok", ok).Msg("Rotate")
	case KindScan:
		ok = d.scanner.HandleScan(ctx, e.Name)
	}
	return ok
}

func (d *Dispatcher) perform(ctx context.Context, action Action) bool {
	p := d.player
	switch action {
	case ActionPlay:
		return p.Play(ctx)
	case ActionPause:
		return p.Pause(ctx)
	case ActionToggle:
		return p.TogglePause(ctx)
	case ActionStop:
		return p.Stop(ctx)
	case ActionNext:
		return p.NextTrack(ctx)
	case ActionPrevious:
		return p.PreviousTrack(ctx)
	case ActionVolumeUp:
		return p.AdjustVolume(ctx, d.step)
	case ActionVolumeDown:
		return p.AdjustVolume(ctx, -d.step)
	case ActionRepeat:
		return p.CycleRepeatMode(ctx)
	case ActionShuffle:
		return p.SetShuffle(ctx, !p.Status().ShuffleEnabled)
	}
	return false
}
