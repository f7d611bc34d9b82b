// Package playback provides the coordinator that owns the authoritative
// playback state and serializes every command that mutates it.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/audio"
	"github.com/llehouerou/musicbox/internal/playlist"
)

// DefaultCommandTimeout bounds slot acquisition and each backend call.
const DefaultCommandTimeout = 3 * time.Second

var (
	// ErrInvalidCommand is returned for commands that are illegal in the
	// current state, such as an out-of-range index. State is unchanged.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrBusy is returned when the exclusion slot could not be acquired
	// before the command timeout.
	ErrBusy = errors.New("coordinator busy")

	errClosed = errors.New("coordinator closed")
)

// Library provides playlist contents to the coordinator.
type Library interface {
	PlaylistTracks(id int64) (title string, tracks []playlist.Track, err error)
}

// Prefs are the playback preferences that survive restarts.
type Prefs struct {
	Volume      int
	Repeat      playlist.RepeatMode
	Shuffle     bool
	AutoAdvance bool
}

// DefaultPrefs returns the preferences used on first start.
func DefaultPrefs() Prefs {
	return Prefs{Volume: 50, AutoAdvance: true}
}

// PrefsStore loads and saves preferences. LoadPrefs returns false when
// nothing has been saved yet.
type PrefsStore interface {
	LoadPrefs() (Prefs, bool, error)
	SavePrefs(p Prefs) error
}

// Options configures a Coordinator.
type Options struct {
	// CommandTimeout defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration
	Log            zerolog.Logger
	// Seed returns shuffle seeds. Defaults to rand.Uint64.
	Seed func() uint64
	// Now defaults to time.Now.
	Now func() time.Time
}

// state is the mutable coordinator state. Commands mutate a clone and the
// clone is committed only on success, so a failed command leaves the
// previous value in place.
type state struct {
	playback      State
	volume        int
	queue         *playlist.Queue
	playlistID    int64
	playlistTitle string
	autoAdvance   bool
	// loaded is set while the backend holds the current track, started
	// by the Play call identified by token.
	loaded    bool
	token     uint64
	basePos   time.Duration
	startedAt time.Time
}

func (s state) clone() state {
	s.queue = s.queue.Clone()
	return s
}

func (s *state) position(now time.Time) time.Duration {
	pos := s.basePos
	if s.playback == StatePlaying && !s.startedAt.IsZero() {
		pos += now.Sub(s.startedAt)
	}
	if t := s.queue.Current(); t != nil && t.Duration > 0 && pos > t.Duration {
		pos = t.Duration
	}
	return pos
}

func (s *state) setPlaying(pos time.Duration, now time.Time) {
	s.playback = StatePlaying
	s.loaded = true
	s.basePos = pos
	s.startedAt = now
}

func (s *state) setPaused(now time.Time) {
	s.basePos = s.position(now)
	s.startedAt = time.Time{}
	s.playback = StatePaused
}

func (s *state) setStopped() {
	s.playback = StateStopped
	s.loaded = false
	s.basePos = 0
	s.startedAt = time.Time{}
}

func (s *state) prefs() Prefs {
	return Prefs{
		Volume:      s.volume,
		Repeat:      s.queue.RepeatMode(),
		Shuffle:     s.queue.Shuffle(),
		AutoAdvance: s.autoAdvance,
	}
}

// outcome describes a successful mutation. An empty event marks a no-op.
type outcome struct {
	event        string
	trackChanged bool
}

type mutation func(ctx context.Context, st *state) (outcome, error)

// Coordinator owns the playback state. At most one command mutates it at
// a time; every other command waits on the exclusion slot.
type Coordinator struct {
	backend  audio.Backend
	library  Library
	prefs    PrefsStore
	notifier Notifier
	log      zerolog.Logger
	timeout  time.Duration
	seed     func() uint64
	now      func() time.Time

	// slot is the exclusion slot held for the whole command.
	slot chan struct{}
	// plays counts backend Play calls. Guarded by slot.
	plays uint64
	// backendIdle is held while a backend call runs, including calls that
	// outlived their command after a timeout.
	backendIdle chan struct{}

	mu sync.RWMutex
	st state

	subsMu sync.RWMutex
	subs   []*Subscription

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a coordinator. Preferences are loaded from prefs; a load
// failure is logged and defaults are used.
func New(
	backend audio.Backend,
	library Library,
	prefs PrefsStore,
	notifier Notifier,
	opts Options,
) *Coordinator {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.Seed == nil {
		opts.Seed = rand.Uint64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Coordinator{
		backend:     backend,
		library:     library,
		prefs:       prefs,
		notifier:    notifier,
		log:         opts.Log.With().Str("component", "playback").Logger(),
		timeout:     opts.CommandTimeout,
		seed:        opts.Seed,
		now:         opts.Now,
		slot:        make(chan struct{}, 1),
		backendIdle: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	p, ok, err := prefs.LoadPrefs()
	switch {
	case err != nil:
		c.log.Warn().Err(err).Msg("Failed to load preferences, using defaults")
		p = DefaultPrefs()
	case !ok:
		p = DefaultPrefs()
	}

	q := playlist.NewQueue()
	q.SetRepeatMode(p.Repeat)
	q.SetShuffle(p.Shuffle, c.seed())
	c.st = state{
		volume:      audio.ClampVolume(p.Volume),
		queue:       q,
		autoAdvance: p.AutoAdvance,
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	if err := backend.SetVolume(ctx, c.st.volume); err != nil {
		c.log.Warn().Err(err).Msg("Failed to apply initial volume")
	}
	cancel()

	c.wg.Add(1)
	go c.watchFinished()

	return c
}

// BackendName returns the name of the backend in use.
func (c *Coordinator) BackendName() string {
	return c.backend.Name()
}

// Status returns a snapshot of the current state. It never calls the
// backend.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusOf(&c.st)
}

// Volume returns the current volume.
func (c *Coordinator) Volume() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st.volume
}

func (c *Coordinator) statusOf(st *state) Status {
	s := Status{
		IsPlaying:           st.playback == StatePlaying,
		IsPaused:            st.playback == StatePaused,
		Volume:              st.volume,
		PositionMs:          st.position(c.now()).Milliseconds(),
		ActivePlaylistID:    st.playlistID,
		ActivePlaylistTitle: st.playlistTitle,
		TrackCount:          st.queue.Len(),
		RepeatMode:          st.queue.RepeatMode().String(),
		ShuffleEnabled:      st.queue.Shuffle(),
		AutoAdvanceEnabled:  st.autoAdvance,
	}
	if t := st.queue.Current(); t != nil {
		s.ActiveTrack = trackFrom(t)
		s.DurationMs = t.Duration.Milliseconds()
		idx := st.queue.CurrentIndex()
		s.TrackIndex = &idx
	}
	return s
}

// Subscribe returns a subscription for in-process listeners.
func (c *Coordinator) Subscribe() *Subscription {
	sub := newSubscription()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	select {
	case <-c.done:
		sub.close()
		return sub
	default:
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Close stops the end-of-track watcher and closes all subscriptions. The
// backend is owned by the caller and is not closed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()

		c.subsMu.Lock()
		for _, sub := range c.subs {
			sub.close()
		}
		c.subs = nil
		c.subsMu.Unlock()
	})
}

// Play starts or resumes playback of the current track.
func (c *Coordinator) Play(ctx context.Context) bool {
	return c.run(ctx, "play", c.play)
}

// Pause pauses playback. Pausing while stopped fails.
func (c *Coordinator) Pause(ctx context.Context) bool {
	return c.run(ctx, "pause", c.pause)
}

// TogglePause pauses when playing, otherwise plays.
func (c *Coordinator) TogglePause(ctx context.Context) bool {
	return c.run(ctx, "toggle_pause", func(ctx context.Context, st *state) (outcome, error) {
		if st.playback == StatePlaying {
			return c.pause(ctx, st)
		}
		return c.play(ctx, st)
	})
}

// Stop stops playback and resets the position.
func (c *Coordinator) Stop(ctx context.Context) bool {
	return c.run(ctx, "stop", func(ctx context.Context, st *state) (outcome, error) {
		if st.playback == StateStopped && st.basePos == 0 {
			return outcome{}, nil
		}
		if st.loaded {
			if err := c.call(ctx, c.backend.Stop); err != nil {
				return outcome{}, err
			}
		}
		st.setStopped()
		return outcome{event: EventPlaybackState}, nil
	})
}

// NextTrack moves to the following track. With repeat off, leaving the
// last track stops playback.
func (c *Coordinator) NextTrack(ctx context.Context) bool {
	return c.run(ctx, "next", func(ctx context.Context, st *state) (outcome, error) {
		if st.queue.IsEmpty() {
			return outcome{}, fmt.Errorf("%w: no playlist loaded", ErrInvalidCommand)
		}
		if st.queue.Next(false) == nil {
			return c.stopAtEnd(ctx, st)
		}
		return c.enterTrack(ctx, st)
	})
}

// PreviousTrack moves to the preceding track. At the first track with
// repeat off the track restarts.
func (c *Coordinator) PreviousTrack(ctx context.Context) bool {
	return c.run(ctx, "previous", func(ctx context.Context, st *state) (outcome, error) {
		if st.queue.IsEmpty() {
			return outcome{}, fmt.Errorf("%w: no playlist loaded", ErrInvalidCommand)
		}
		before := st.queue.CurrentIndex()
		st.queue.Previous()
		if st.queue.CurrentIndex() != before {
			return c.enterTrack(ctx, st)
		}
		return c.restart(ctx, st)
	})
}

// JumpTo moves to the track at index.
func (c *Coordinator) JumpTo(ctx context.Context, index int) bool {
	return c.run(ctx, "jump", func(ctx context.Context, st *state) (outcome, error) {
		if st.queue.JumpTo(index) == nil {
			return outcome{}, fmt.Errorf("%w: track index %d out of range", ErrInvalidCommand, index)
		}
		return c.enterTrack(ctx, st)
	})
}

// Seek moves the position within the current track.
func (c *Coordinator) Seek(ctx context.Context, position time.Duration) bool {
	return c.run(ctx, "seek", func(ctx context.Context, st *state) (outcome, error) {
		if !st.playback.IsActive() || !st.loaded {
			return outcome{}, fmt.Errorf("%w: nothing playing", ErrInvalidCommand)
		}
		position = max(position, 0)
		if t := st.queue.Current(); t != nil && t.Duration > 0 {
			position = min(position, t.Duration)
		}
		if err := c.call(ctx, func(ctx context.Context) error {
			return c.backend.Seek(ctx, position)
		}); err != nil {
			return outcome{}, err
		}
		st.basePos = position
		if st.playback == StatePlaying {
			st.startedAt = c.now()
		}
		return outcome{event: EventPlaybackState}, nil
	})
}

// SetVolume sets the volume. Values outside [0,100] are clamped.
func (c *Coordinator) SetVolume(ctx context.Context, level int) bool {
	return c.run(ctx, "set_volume", func(ctx context.Context, st *state) (outcome, error) {
		return c.setVolume(ctx, st, level)
	})
}

// AdjustVolume changes the volume by delta, clamped to [0,100].
func (c *Coordinator) AdjustVolume(ctx context.Context, delta int) bool {
	return c.run(ctx, "adjust_volume", func(ctx context.Context, st *state) (outcome, error) {
		return c.setVolume(ctx, st, st.volume+delta)
	})
}

// SetRepeatMode sets the repeat mode.
func (c *Coordinator) SetRepeatMode(ctx context.Context, mode playlist.RepeatMode) bool {
	return c.run(ctx, "set_repeat", func(_ context.Context, st *state) (outcome, error) {
		return setRepeat(st, mode)
	})
}

// CycleRepeatMode cycles the repeat mode: off → all → one → off.
func (c *Coordinator) CycleRepeatMode(ctx context.Context) bool {
	return c.run(ctx, "cycle_repeat", func(_ context.Context, st *state) (outcome, error) {
		return setRepeat(st, st.queue.RepeatMode().Next())
	})
}

// SetShuffle enables or disables shuffle. Enabling reseeds the order and
// keeps the current track first.
func (c *Coordinator) SetShuffle(ctx context.Context, enabled bool) bool {
	return c.run(ctx, "set_shuffle", func(_ context.Context, st *state) (outcome, error) {
		if st.queue.Shuffle() == enabled {
			return outcome{}, nil
		}
		st.queue.SetShuffle(enabled, c.seed())
		return outcome{event: EventModeChanged}, nil
	})
}

// SetAutoAdvance enables or disables advancing at the end of a track.
func (c *Coordinator) SetAutoAdvance(ctx context.Context, enabled bool) bool {
	return c.run(ctx, "set_auto_advance", func(_ context.Context, st *state) (outcome, error) {
		if st.autoAdvance == enabled {
			return outcome{}, nil
		}
		st.autoAdvance = enabled
		return outcome{event: EventModeChanged}, nil
	})
}

// LoadPlaylist activates a playlist, stopping playback and positioning on
// the first track of the traversal order.
func (c *Coordinator) LoadPlaylist(ctx context.Context, id int64) bool {
	return c.run(ctx, "load_playlist", func(ctx context.Context, st *state) (outcome, error) {
		return c.load(ctx, st, id, false)
	})
}

// PlayPlaylist activates a playlist and starts its first track.
func (c *Coordinator) PlayPlaylist(ctx context.Context, id int64) bool {
	return c.run(ctx, "play_playlist", func(ctx context.Context, st *state) (outcome, error) {
		if _, err := c.load(ctx, st, id, true); err != nil {
			return outcome{}, err
		}
		if err := c.playTrack(ctx, st, st.queue.Current().Path); err != nil {
			return outcome{}, err
		}
		return outcome{event: EventPlaylistLoaded, trackChanged: true}, nil
	})
}

// advance handles the natural end of the track started under token. An
// end signal from a track that a later command already replaced is
// ignored.
func (c *Coordinator) advance(ctx context.Context, token uint64) bool {
	return c.run(ctx, "advance", func(ctx context.Context, st *state) (outcome, error) {
		if st.playback != StatePlaying || st.token != token {
			return outcome{}, nil
		}
		if !st.autoAdvance {
			st.setStopped()
			return outcome{event: EventPlaybackState}, nil
		}
		t := st.queue.Next(true)
		if t == nil {
			st.setStopped()
			return outcome{event: EventPlaybackState}, nil
		}
		if err := c.playTrack(ctx, st, t.Path); err != nil {
			return outcome{}, err
		}
		return outcome{event: EventTrackChanged, trackChanged: true}, nil
	})
}

func (c *Coordinator) play(ctx context.Context, st *state) (outcome, error) {
	switch {
	case st.playback == StatePlaying:
		return outcome{}, nil
	case st.playback == StatePaused && st.loaded:
		if err := c.call(ctx, c.backend.Resume); err != nil {
			return outcome{}, err
		}
		st.setPlaying(st.basePos, c.now())
		return outcome{event: EventPlaybackState}, nil
	}

	t := st.queue.Current()
	if t == nil {
		return outcome{}, fmt.Errorf("%w: nothing to play", ErrInvalidCommand)
	}
	if err := c.playTrack(ctx, st, t.Path); err != nil {
		return outcome{}, err
	}
	return outcome{event: EventPlaybackState}, nil
}

func (c *Coordinator) pause(ctx context.Context, st *state) (outcome, error) {
	switch st.playback {
	case StateStopped:
		return outcome{}, fmt.Errorf("%w: cannot pause while stopped", ErrInvalidCommand)
	case StatePaused:
		return outcome{}, nil
	}
	if err := c.call(ctx, c.backend.Pause); err != nil {
		return outcome{}, err
	}
	st.setPaused(c.now())
	return outcome{event: EventPlaybackState}, nil
}

// enterTrack applies a move to a new queue position. Playing continues on
// the new track; Paused stays paused with nothing loaded; Stopped only
// moves the cursor.
func (c *Coordinator) enterTrack(ctx context.Context, st *state) (outcome, error) {
	switch st.playback {
	case StatePlaying:
		if err := c.playTrack(ctx, st, st.queue.Current().Path); err != nil {
			return outcome{}, err
		}
	case StatePaused:
		if st.loaded {
			if err := c.call(ctx, c.backend.Stop); err != nil {
				return outcome{}, err
			}
		}
		st.loaded = false
		st.basePos = 0
	case StateStopped:
		st.basePos = 0
	}
	return outcome{event: EventTrackChanged, trackChanged: true}, nil
}

func (c *Coordinator) restart(ctx context.Context, st *state) (outcome, error) {
	if st.basePos == 0 && st.playback != StatePlaying {
		return outcome{}, nil
	}
	if st.loaded {
		if err := c.call(ctx, func(ctx context.Context) error {
			return c.backend.Seek(ctx, 0)
		}); err != nil {
			return outcome{}, err
		}
	}
	st.basePos = 0
	if st.playback == StatePlaying {
		st.startedAt = c.now()
	}
	return outcome{event: EventPlaybackState}, nil
}

func (c *Coordinator) stopAtEnd(ctx context.Context, st *state) (outcome, error) {
	if st.playback == StateStopped {
		return outcome{}, nil
	}
	if st.loaded {
		if err := c.call(ctx, c.backend.Stop); err != nil {
			return outcome{}, err
		}
	}
	st.setStopped()
	return outcome{event: EventPlaybackState}, nil
}

func (c *Coordinator) setVolume(ctx context.Context, st *state, level int) (outcome, error) {
	level = audio.ClampVolume(level)
	if level == st.volume {
		return outcome{}, nil
	}
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.backend.SetVolume(ctx, level)
	}); err != nil {
		return outcome{}, err
	}
	st.volume = level
	return outcome{event: EventVolumeChanged}, nil
}

func setRepeat(st *state, mode playlist.RepeatMode) (outcome, error) {
	if mode < playlist.RepeatOff || mode > playlist.RepeatOne {
		return outcome{}, fmt.Errorf("%w: %w", ErrInvalidCommand, playlist.ErrUnknownRepeatMode)
	}
	if st.queue.RepeatMode() == mode {
		return outcome{}, nil
	}
	st.queue.SetRepeatMode(mode)
	return outcome{event: EventModeChanged}, nil
}

func (c *Coordinator) load(ctx context.Context, st *state, id int64, playable bool) (outcome, error) {
	title, tracks, err := c.library.PlaylistTracks(id)
	if err != nil {
		return outcome{}, fmt.Errorf("load playlist %d: %w", id, err)
	}
	if playable && len(tracks) == 0 {
		return outcome{}, fmt.Errorf("%w: playlist %d has no tracks", ErrInvalidCommand, id)
	}
	if st.loaded {
		if err := c.call(ctx, c.backend.Stop); err != nil {
			return outcome{}, err
		}
	}
	st.setStopped()
	st.queue.Replace(c.seed(), tracks...)
	st.playlistID = id
	st.playlistTitle = title
	return outcome{event: EventPlaylistLoaded, trackChanged: true}, nil
}

// playTrack starts path under a fresh token and marks st playing from
// the start of the track.
func (c *Coordinator) playTrack(ctx context.Context, st *state, path string) error {
	c.plays++
	token := c.plays
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.backend.Play(ctx, path, token)
	}); err != nil {
		return err
	}
	st.setPlaying(0, c.now())
	st.token = token
	return nil
}

// run executes a mutation under the exclusion slot and commits it on
// success. The command context is detached from the caller's
// cancellation and bounded by the command timeout.
func (c *Coordinator) run(ctx context.Context, op string, m mutation) bool {
	select {
	case <-c.done:
		c.fail(op, errClosed)
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		c.fail(op, fmt.Errorf("%w: %w", ErrBusy, ctx.Err()))
		return false
	case <-c.done:
		c.fail(op, errClosed)
		return false
	}
	defer func() { <-c.slot }()

	next := c.st.clone()
	out, err := m(ctx, &next)
	if err != nil {
		c.fail(op, err)
		return false
	}
	if out.event == "" {
		c.log.Debug().Str("op", op).Msg("Command had no effect")
		return true
	}

	c.mu.Lock()
	prev := c.st
	c.st = next
	change := Change{
		Type:         out.event,
		Previous:     c.statusOf(&prev),
		Status:       c.statusOf(&next),
		TrackChanged: out.trackChanged,
	}
	c.mu.Unlock()

	c.log.Debug().Str("op", op).Str("event", out.event).Msg("Command applied")

	if prev.prefs() != next.prefs() {
		if err := c.prefs.SavePrefs(next.prefs()); err != nil {
			c.log.Warn().Err(err).Msg("Failed to save preferences")
		}
	}

	c.notifier.Notify(change)
	c.publish(change)
	return true
}

// call runs a backend operation bounded by ctx. The operation keeps
// backendIdle until it actually returns, so a call that timed out still
// blocks the next backend call instead of interleaving with it.
func (c *Coordinator) call(ctx context.Context, fn func(context.Context) error) error {
	select {
	case c.backendIdle <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: backend still busy: %w", audio.ErrBackendFailure, ctx.Err())
	}

	errCh := make(chan error, 1)
	go func() {
		defer func() { <-c.backendIdle }()
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("%w: panic: %v", audio.ErrBackendFailure, r)
			}
		}()
		errCh <- fn(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		select {
		case err := <-errCh:
			return err
		default:
		}
		return fmt.Errorf("%w: %w", audio.ErrBackendFailure, ctx.Err())
	}
}

func (c *Coordinator) fail(op string, err error) {
	ev := c.log.Warn()
	if errors.Is(err, audio.ErrBackendFailure) {
		ev = c.log.Error()
	}
	ev.Err(err).Str("op", op).Msg("Command failed")

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendError(ErrorEvent{Operation: op, Err: err})
	}
}

func (c *Coordinator) publish(change Change) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.publish(change)
	}
}

func (c *Coordinator) watchFinished() {
	defer c.wg.Done()
	finished := c.backend.Finished()
	for {
		select {
		case <-c.done:
			return
		case token, ok := <-finished:
			if !ok {
				return
			}
			c.advance(context.Background(), token)
		}
	}
}
