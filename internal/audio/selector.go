package audio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Candidate is one backend constructor tried by Select.
type Candidate struct {
	Name string
	Open func(ctx context.Context) (Backend, error)
}

// Options holds everything the built-in candidates need.
type Options struct {
	MPD MPDOptions
	Log zerolog.Logger
}

// Names of the built-in backends.
const (
	BackendMPD     = "mpd"
	BackendSpeaker = "speaker"
	BackendNoop    = "noop"
)

// Candidates builds the candidate list for the given backend names, in
// order. Unknown names are an error.
func Candidates(names []string, opts Options) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		switch name {
		case BackendMPD:
			candidates = append(candidates, Candidate{
				Name: name,
				Open: func(context.Context) (Backend, error) { return NewMPD(opts.MPD, opts.Log) },
			})
		case BackendSpeaker:
			candidates = append(candidates, Candidate{
				Name: name,
				Open: func(context.Context) (Backend, error) { return NewSpeaker() },
			})
		case BackendNoop:
			candidates = append(candidates, Candidate{
				Name: name,
				Open: func(context.Context) (Backend, error) { return NewNoop(), nil },
			})
		default:
			return nil, fmt.Errorf("unknown audio backend %q", name)
		}
	}
	return candidates, nil
}

// Select chooses the audio backend once at startup.
//
// With mock set the no-op backend is returned unconditionally. Otherwise
// candidates are tried in order; a candidate that fails or panics is
// logged and skipped. When every candidate fails the no-op backend is
// returned so the rest of the system keeps running in degraded mode.
func Select(ctx context.Context, mock bool, candidates []Candidate, log zerolog.Logger) Backend {
	if mock {
		log.Info().Msg("Mock audio enabled, using noop backend")
		return NewNoop()
	}

	for _, c := range candidates {
		b, err := open(ctx, c)
		if err != nil {
			log.Warn().Err(err).Str("backend", c.Name).Msg("Audio backend unavailable")
			continue
		}
		log.Info().Str("backend", b.Name()).Msg("Audio backend selected")
		return b
	}

	log.Error().Int("tried", len(candidates)).Msg("No audio backend available, running degraded with noop backend")
	return NewNoop()
}

func open(ctx context.Context, c Candidate) (b Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrBackendFailure, c.Name, r)
		}
	}()
	b, err = c.Open(ctx)
	if err == nil && b == nil {
		err = fmt.Errorf("%w: %s returned no backend", ErrBackendFailure, c.Name)
	}
	return b, err
}
