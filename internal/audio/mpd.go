package audio

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
)

// MPDOptions configures the MPD backend.
type MPDOptions struct {
	Network  string // "tcp" or "unix"
	Address  string
	Password string
	// MusicDir is stripped from track paths to build MPD URIs, which are
	// relative to the daemon's music directory.
	MusicDir string
}

// MPD drives a Music Player Daemon over its control protocol.
type MPD struct {
	opts MPDOptions
	log  zerolog.Logger

	mu      sync.Mutex
	client  *mpd.Client
	playing bool // set while we expect the daemon to be playing a track
	token   uint64

	watcher    *mpd.Watcher
	finishedCh chan uint64
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMPD connects to the daemon and starts watching player events.
func NewMPD(opts MPDOptions, log zerolog.Logger) (*MPD, error) {
	m := &MPD{
		opts:       opts,
		log:        log.With().Str("backend", "mpd").Logger(),
		finishedCh: make(chan uint64, 1),
		done:       make(chan struct{}),
	}

	client, err := m.dial()
	if err != nil {
		return nil, failure(m.Name(), "connect", err)
	}
	if err := client.Ping(); err != nil {
		client.Close()
		return nil, failure(m.Name(), "connect", err)
	}
	m.client = client

	w, err := mpd.NewWatcher(opts.Network, opts.Address, opts.Password, "player")
	if err != nil {
		client.Close()
		return nil, failure(m.Name(), "watch", err)
	}
	m.watcher = w
	go m.watch()

	return m, nil
}

// Name returns "mpd".
func (m *MPD) Name() string { return "mpd" }

func (m *MPD) Play(_ context.Context, path string, token uint64) error {
	uri := m.uri(path)
	err := m.do(OpPlay, func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(uri); err != nil {
			return err
		}
		return c.Play(0)
	})
	m.mu.Lock()
	m.playing = err == nil
	m.token = token
	m.mu.Unlock()
	return err
}

func (m *MPD) Pause(_ context.Context) error {
	return m.do(OpPause, func(c *mpd.Client) error { return c.Pause(true) })
}

func (m *MPD) Resume(_ context.Context) error {
	return m.do(OpResume, func(c *mpd.Client) error { return c.Pause(false) })
}

func (m *MPD) Stop(_ context.Context) error {
	m.setPlaying(false)
	return m.do(OpStop, func(c *mpd.Client) error { return c.Stop() })
}

func (m *MPD) Seek(_ context.Context, position time.Duration) error {
	return m.do(OpSeek, func(c *mpd.Client) error { return c.SeekCur(position, false) })
}

func (m *MPD) SetVolume(_ context.Context, level int) error {
	return m.do(OpSetVolume, func(c *mpd.Client) error { return c.SetVolume(ClampVolume(level)) })
}

func (m *MPD) Position(_ context.Context) (time.Duration, error) {
	var pos time.Duration
	err := m.do(OpPosition, func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		pos = parseElapsed(attrs["elapsed"])
		return nil
	})
	return pos, err
}

func (m *MPD) Finished() <-chan uint64 { return m.finishedCh }

// Close stops the watcher and closes the control connection.
func (m *MPD) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		if m.watcher != nil {
			err = m.watcher.Close()
		}
		m.mu.Lock()
		if m.client != nil {
			err = errors.Join(err, m.client.Close())
			m.client = nil
		}
		m.mu.Unlock()
	})
	return err
}

func (m *MPD) dial() (*mpd.Client, error) {
	if m.opts.Password != "" {
		return mpd.DialAuthenticated(m.opts.Network, m.opts.Address, m.opts.Password)
	}
	return mpd.Dial(m.opts.Network, m.opts.Address)
}

// do runs fn on the control connection. MPD closes idle connections, so a
// failed call is retried once on a fresh connection.
func (m *MPD) do(op string, fn func(c *mpd.Client) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		if err := fn(m.client); err == nil {
			return nil
		}
		m.client.Close()
		m.client = nil
	}

	client, err := m.dial()
	if err != nil {
		return failure(m.Name(), op, err)
	}
	m.client = client
	return failure(m.Name(), op, fn(client))
}

func (m *MPD) setPlaying(v bool) {
	m.mu.Lock()
	m.playing = v
	m.mu.Unlock()
}

// watch turns "player" subsystem changes into Finished signals: the daemon
// stopping while we expect playback means the track ran out.
func (m *MPD) watch() {
	for {
		select {
		case <-m.done:
			return
		case err, ok := <-m.watcher.Error:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("MPD watcher error")
		case _, ok := <-m.watcher.Event:
			if !ok {
				return
			}
			m.checkFinished()
		}
	}
}

func (m *MPD) checkFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing || m.client == nil {
		return
	}
	attrs, err := m.client.Status()
	if err != nil {
		return
	}
	if attrs["state"] != "stop" {
		return
	}
	m.playing = false
	select {
	case m.finishedCh <- m.token:
	default:
	}
}

func (m *MPD) uri(path string) string {
	if m.opts.MusicDir == "" {
		return path
	}
	rel, err := filepath.Rel(m.opts.MusicDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func parseElapsed(s string) time.Duration {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// Verify MPD implements Backend at compile time.
var _ Backend = (*MPD)(nil)
