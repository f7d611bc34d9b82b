package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"

	speakerSampleRate = beep.SampleRate(44100)
	resampleQuality   = 4
)

var speakerOnce struct {
	sync.Once
	err error
}

// Speaker plays local files through the OS audio output.
type Speaker struct {
	mu         sync.Mutex
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	streamer   beep.StreamSeekCloser
	format     beep.Format
	file       *os.File
	level      int
	finishedCh chan uint64
}

// NewSpeaker initializes the output device. It fails when no audio device
// is available, which lets the selector fall back to another backend.
func NewSpeaker() (*Speaker, error) {
	speakerOnce.Do(func() {
		speakerOnce.err = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	if speakerOnce.err != nil {
		return nil, failure("speaker", "init", speakerOnce.err)
	}
	return &Speaker{
		level:      100,
		finishedCh: make(chan uint64, 1),
	}, nil
}

// Name returns "speaker".
func (s *Speaker) Name() string { return "speaker" }

// Play starts playback of the given audio file.
func (s *Speaker) Play(_ context.Context, path string, token uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	// Drain any stale finish signal from previous track
	select {
	case <-s.finishedCh:
	default:
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != extMP3 && ext != extFLAC {
		return failure(s.Name(), OpPlay, fmt.Errorf("unsupported format: %s", ext))
	}

	f, err := os.Open(path)
	if err != nil {
		return failure(s.Name(), OpPlay, err)
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext {
	case extMP3:
		streamer, format, err = mp3.Decode(f)
	case extFLAC:
		// Skip ID3v2 tag if present (some taggers add it to FLAC files)
		if err = skipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	}
	if err != nil {
		f.Close()
		return failure(s.Name(), OpPlay, err)
	}

	s.file = f
	s.streamer = streamer
	s.format = format

	var playStreamer beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		playStreamer = beep.Resample(resampleQuality, format.SampleRate, speakerSampleRate, streamer)
	}
	s.ctrl = &beep.Ctrl{Streamer: playStreamer, Paused: false}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	s.applyVolumeLocked()

	finished := s.finishedCh
	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		select {
		case finished <- token:
		default:
		}
	})))
	return nil
}

// Pause pauses playback.
func (s *Speaker) Pause(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return failure(s.Name(), OpPause, errNothingLoaded)
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Resume resumes paused playback.
func (s *Speaker) Resume(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return failure(s.Name(), OpResume, errNothingLoaded)
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Stop stops playback and releases the decoded file.
func (s *Speaker) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Seek moves to an absolute position in the current track.
func (s *Speaker) Seek(_ context.Context, position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return failure(s.Name(), OpSeek, errNothingLoaded)
	}

	target := s.format.SampleRate.N(position)
	target = min(max(target, 0), s.streamer.Len()-1)

	speaker.Lock()
	err := s.streamer.Seek(target)
	speaker.Unlock()
	return failure(s.Name(), OpSeek, err)
}

// SetVolume sets the output level (0-100).
func (s *Speaker) SetVolume(_ context.Context, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = ClampVolume(level)
	s.applyVolumeLocked()
	return nil
}

// Position returns the current playback position.
func (s *Speaker) Position(_ context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0, nil
	}
	speaker.Lock()
	pos := s.format.SampleRate.D(s.streamer.Position())
	speaker.Unlock()
	return pos, nil
}

func (s *Speaker) Finished() <-chan uint64 { return s.finishedCh }

// Close stops playback. The shared output device stays initialized.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Speaker) stopLocked() {
	speaker.Clear()

	if s.streamer != nil {
		s.streamer.Close()
		s.streamer = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.ctrl = nil
	s.volume = nil
}

func (s *Speaker) applyVolumeLocked() {
	if s.volume == nil {
		return
	}
	speaker.Lock()
	s.volume.Volume = levelToVolume(s.level)
	s.volume.Silent = s.level == 0
	speaker.Unlock()
}

// levelToVolume converts a 0-100 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
// We map: 100 -> 0, 50 -> -1, 25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level int) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 100 {
		return 0
	}
	return math.Log2(float64(level) / 100)
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
// Some FLAC files have ID3v2 tags prepended, which the FLAC decoder doesn't handle.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := r.Read(header)
	if err != nil {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is stored as a syncsafe integer in bytes 6-9
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// Verify Speaker implements Backend at compile time.
var _ Backend = (*Speaker)(nil)
