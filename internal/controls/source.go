package controls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrBadLine is returned for lines outside the input protocol.
var ErrBadLine = errors.New("bad input line")

// Kind is the type of an input event.
type Kind int

const (
	KindPress Kind = iota
	KindRotate
	KindScan
)

// String returns the protocol verb of the kind.
func (k Kind) String() string {
	switch k {
	case KindPress:
		return "press"
	case KindRotate:
		return "rotate"
	case KindScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Event is one physical input. Name is the input name for presses and the
// tag id for scans; Delta is the detent count for rotations.
type Event struct {
	Kind  Kind
	Name  string
	Delta int
}

// Source produces input events until ctx is done or the input ends.
type Source interface {
	Run(ctx context.Context, events chan<- Event) error
}

// ParseLine parses one line of the input protocol:
//
//	press <button>
//	pin <bcm>
//	rotate <+n|-n>
//	scan <tag>
//
// Blank lines and lines starting with '#' yield ok == false.
func ParseLine(line string) (e Event, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false, nil
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Event{}, false, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	verb, arg := strings.ToLower(fields[0]), fields[1]

	switch verb {
	case "press":
		return Event{Kind: KindPress, Name: strings.ToLower(arg)}, true, nil
	case "pin":
		pin, err := strconv.Atoi(arg)
		if err != nil || pin < 0 {
			return Event{}, false, fmt.Errorf("%w: bad pin %q", ErrBadLine, arg)
		}
		return Event{Kind: KindPress, Name: PinInput(pin)}, true, nil
	case "rotate":
		n, err := strconv.Atoi(arg)
		if err != nil || n == 0 {
			return Event{}, false, fmt.Errorf("%w: bad rotation %q", ErrBadLine, arg)
		}
		return Event{Kind: KindRotate, Delta: n}, true, nil
	case "scan":
		return Event{Kind: KindScan, Name: arg}, true, nil
	}
	return Event{}, false, fmt.Errorf("%w: unknown verb %q", ErrBadLine, verb)
}

// LineSource reads the text input protocol from a reader.
type LineSource struct {
	r   io.Reader
	log zerolog.Logger
}

// NewLineSource creates a source reading r. Malformed lines are logged
// and skipped.
func NewLineSource(r io.Reader, log zerolog.Logger) *LineSource {
	return &LineSource{r: r, log: log}
}

// Run reads lines until EOF or ctx is done. If the reader is an
// io.Closer it is closed when ctx ends so a blocked read returns.
func (s *LineSource) Run(ctx context.Context, events chan<- Event) error {
	if c, ok := s.r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		e, ok, err := ParseLine(sc.Text())
		if err != nil {
			s.log.Warn().Err(err).Msg("Ignoring input line")
			continue
		}
		if !ok {
			continue
		}
		select {
		case events <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}

// reopenDelay paces FileSource when the input cannot be opened.
const reopenDelay = time.Second

// FileSource reads the input protocol from a path, typically a FIFO
// written by the GPIO daemon. The path is reopened each time its writer
// goes away. "-" reads standard input once.
type FileSource struct {
	Path string
	Log  zerolog.Logger
}

// Run reads until ctx is done.
func (s FileSource) Run(ctx context.Context, events chan<- Event) error {
	if s.Path == "-" {
		return NewLineSource(io.NopCloser(os.Stdin), s.Log).Run(ctx, events)
	}
	for {
		f, err := os.Open(s.Path)
		if err != nil {
			s.Log.Warn().Err(err).Str("path", s.Path).Msg("Cannot open control input")
		} else {
			err = NewLineSource(f, s.Log).Run(ctx, events)
			_ = f.Close()
			if err != nil && ctx.Err() == nil {
				s.Log.Warn().Err(err).Str("path", s.Path).Msg("Control input failed")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reopenDelay):
		}
	}
}

var (
	_ Source = (*LineSource)(nil)
	_ Source = FileSource{}
)
