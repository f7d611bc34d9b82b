package indicator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	sent   []Notification
	closed []uint32
	nextID uint32
	err    error
}

func (f *fakeNotifier) Notify(n Notification) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, n)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) Close(id uint32) error {
	f.closed = append(f.closed, id)
	return nil
}

func mustDirective(t *testing.T, name string) Directive {
	t.Helper()
	d, err := NewDirective(name, 1)
	require.NoError(t, err)
	return d
}

func TestNotifySink_ReplacesPrevious(t *testing.T) {
	n := &fakeNotifier{}
	s := NewNotifySink(n)

	require.NoError(t, s.Apply(mustDirective(t, Starting)))
	require.NoError(t, s.Apply(mustDirective(t, Playing)))

	require.Len(t, n.sent, 2)
	assert.Equal(t, uint32(0), n.sent[0].ReplacesID)
	assert.Equal(t, uint32(1), n.sent[1].ReplacesID)
	assert.Equal(t, "musicbox: Playing", n.sent[1].Title)
	assert.Equal(t, "#1db954 solid at 100%", n.sent[1].Body)
	assert.Equal(t, UrgencyLow, n.sent[1].Urgency)
}

func TestNotifySink_ErrorIsCritical(t *testing.T) {
	n := &fakeNotifier{}
	s := NewNotifySink(n)

	require.NoError(t, s.Apply(mustDirective(t, Error)))
	assert.Equal(t, UrgencyCritical, n.sent[0].Urgency)
}

func TestNotifySink_StoppedCloses(t *testing.T) {
	n := &fakeNotifier{}
	s := NewNotifySink(n)

	require.NoError(t, s.Apply(mustDirective(t, Stopped)))
	assert.Empty(t, n.closed, "nothing to close yet")

	require.NoError(t, s.Apply(mustDirective(t, Paused)))
	require.NoError(t, s.Apply(mustDirective(t, Stopped)))
	assert.Equal(t, []uint32{1}, n.closed)

	require.NoError(t, s.Apply(mustDirective(t, Playing)))
	assert.Equal(t, uint32(0), n.sent[1].ReplacesID)
}

func TestNotifySink_PropagatesError(t *testing.T) {
	n := &fakeNotifier{err: errors.New("bus gone")}
	s := NewNotifySink(n)

	assert.EqualError(t, s.Apply(mustDirective(t, Playing)), "bus gone")
}
