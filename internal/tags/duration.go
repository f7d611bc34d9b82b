package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for streams ReadDuration cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ReadDuration decodes the stream header of an MP3, FLAC or WAV file and
// returns its length.
func ReadDuration(path string) (time.Duration, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ExtMP3, ExtFLAC, ExtWAV:
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext {
	case ExtMP3:
		streamer, format, err = mp3.Decode(f)
	case ExtFLAC:
		streamer, format, err = flac.Decode(f)
	case ExtWAV:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return 0, err
	}

	if format.SampleRate <= 0 {
		return 0, errors.New("invalid sample rate")
	}
	return format.SampleRate.D(streamer.Len()), nil
}
