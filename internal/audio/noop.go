package audio

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Call records one operation received by a Noop backend.
type Call struct {
	Op  string
	Arg string
}

// Noop is a backend that produces no sound. It is selected when the mock
// flag is set or every hardware backend failed, and doubles as the test
// backend: it records calls, can fail or block on demand and tracks how
// many calls were in flight at once.
type Noop struct {
	mu          sync.Mutex
	calls       []Call
	errs        map[string]error
	gate        chan struct{}
	inFlight    int
	maxInFlight int
	volume      int
	position    time.Duration
	token       uint64
	finishedCh  chan uint64
}

// NewNoop creates a no-op backend.
func NewNoop() *Noop {
	return &Noop{
		errs:       make(map[string]error),
		volume:     100,
		finishedCh: make(chan uint64, 1),
	}
}

// Name returns "noop".
func (n *Noop) Name() string { return "noop" }

func (n *Noop) Play(ctx context.Context, path string, token uint64) error {
	if err := n.enter(ctx, OpPlay, path); err != nil {
		return err
	}
	n.mu.Lock()
	n.position = 0
	n.token = token
	n.mu.Unlock()
	return nil
}

func (n *Noop) Pause(ctx context.Context) error { return n.enter(ctx, OpPause, "") }

func (n *Noop) Resume(ctx context.Context) error { return n.enter(ctx, OpResume, "") }

func (n *Noop) Stop(ctx context.Context) error {
	if err := n.enter(ctx, OpStop, ""); err != nil {
		return err
	}
	n.mu.Lock()
	n.position = 0
	n.mu.Unlock()
	return nil
}

func (n *Noop) Seek(ctx context.Context, position time.Duration) error {
	if err := n.enter(ctx, OpSeek, position.String()); err != nil {
		return err
	}
	n.mu.Lock()
	n.position = position
	n.mu.Unlock()
	return nil
}

func (n *Noop) SetVolume(ctx context.Context, level int) error {
	if err := n.enter(ctx, OpSetVolume, strconv.Itoa(level)); err != nil {
		return err
	}
	n.mu.Lock()
	n.volume = level
	n.mu.Unlock()
	return nil
}

func (n *Noop) Position(ctx context.Context) (time.Duration, error) {
	if err := n.enter(ctx, OpPosition, ""); err != nil {
		return 0, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position, nil
}

func (n *Noop) Finished() <-chan uint64 { return n.finishedCh }

func (n *Noop) Close() error { return nil }

func (n *Noop) enter(ctx context.Context, op, arg string) error {
	n.mu.Lock()
	n.calls = append(n.calls, Call{Op: op, Arg: arg})
	n.inFlight++
	n.maxInFlight = max(n.maxInFlight, n.inFlight)
	gate := n.gate
	err := n.errs[op]
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.inFlight--
		n.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return failure(n.Name(), op, ctx.Err())
		}
	}
	return failure(n.Name(), op, err)
}

// Test helpers

// SetError makes every subsequent call to op fail with err. A nil err
// clears the failure.
func (n *Noop) SetError(op string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.errs, op)
		return
	}
	n.errs[op] = err
}

// Block makes every subsequent call wait until the returned release
// function is called or the call's context ends.
func (n *Noop) Block() (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.gate = gate
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			n.gate = nil
			n.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns a copy of the recorded calls.
func (n *Noop) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Call(nil), n.calls...)
}

// Ops returns the recorded operation names, in order.
func (n *Noop) Ops() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ops := make([]string, len(n.calls))
	for i, c := range n.calls {
		ops[i] = c.Op
	}
	return ops
}

// ResetCalls clears the call log.
func (n *Noop) ResetCalls() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}

// MaxInFlight returns the highest number of concurrent calls observed.
func (n *Noop) MaxInFlight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maxInFlight
}

// Volume returns the last volume set.
func (n *Noop) Volume() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.volume
}

// SimulateFinished simulates the last successfully started track reaching
// its end.
func (n *Noop) SimulateFinished() {
	n.mu.Lock()
	token := n.token
	n.mu.Unlock()
	select {
	case n.finishedCh <- token:
	default:
	}
}

// Verify Noop implements Backend at compile time.
var _ Backend = (*Noop)(nil)
