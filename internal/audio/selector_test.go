package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedBackend struct {
	*Noop
	name string
}

func (n namedBackend) Name() string { return n.name }

func candidate(name string, err error, opened *[]string) Candidate {
	return Candidate{
		Name: name,
		Open: func(context.Context) (Backend, error) {
			*opened = append(*opened, name)
			if err != nil {
				return nil, err
			}
			return namedBackend{Noop: NewNoop(), name: name}, nil
		},
	}
}

func TestSelect_MockSkipsCandidates(t *testing.T) {
	var opened []string
	b := Select(context.Background(), true, []Candidate{candidate("hw", nil, &opened)}, zerolog.Nop())

	assert.Equal(t, BackendNoop, b.Name())
	assert.Empty(t, opened)
}

func TestSelect_FirstWorkingCandidateWins(t *testing.T) {
	var opened []string
	b := Select(context.Background(), false, []Candidate{
		candidate("codec", errors.New("no device"), &opened),
		candidate("alsa", nil, &opened),
		candidate("never", nil, &opened),
	}, zerolog.Nop())

	assert.Equal(t, "alsa", b.Name())
	assert.Equal(t, []string{"codec", "alsa"}, opened)
}

func TestSelect_AllFailFallsBackToNoop(t *testing.T) {
	var opened []string
	b := Select(context.Background(), false, []Candidate{
		candidate("codec", errors.New("no device"), &opened),
		candidate("alsa", errors.New("busy"), &opened),
	}, zerolog.Nop())

	assert.Equal(t, BackendNoop, b.Name())
	assert.Len(t, opened, 2)
}

func TestSelect_PanickingCandidateIsSkipped(t *testing.T) {
	b := Select(context.Background(), false, []Candidate{
		{Name: "boom", Open: func(context.Context) (Backend, error) { panic("driver crashed") }},
	}, zerolog.Nop())

	assert.Equal(t, BackendNoop, b.Name())
}

func TestSelect_NilBackendIsFailure(t *testing.T) {
	b := Select(context.Background(), false, []Candidate{
		{Name: "nil", Open: func(context.Context) (Backend, error) { return nil, nil }},
	}, zerolog.Nop())

	assert.Equal(t, BackendNoop, b.Name())
}

func TestCandidates(t *testing.T) {
	cs, err := Candidates([]string{BackendMPD, BackendSpeaker, BackendNoop}, Options{})
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, BackendMPD, cs[0].Name)
	assert.Equal(t, BackendSpeaker, cs[1].Name)

	_, err = Candidates([]string{"alsa"}, Options{})
	assert.Error(t, err)
}
