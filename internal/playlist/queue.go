package playlist

import "math/rand/v2"

// Queue is a Tracklist with a traversal order and a current position.
//
// Traversal follows order, a permutation of playlist indices. Without
// shuffle it is the identity; with shuffle it is derived from seed, so
// Next and Previous walk the same sequence in opposite directions until
// the queue is reseeded.
type Queue struct {
	tracks  Tracklist
	order   []int
	pos     int // position in order, -1 if none
	repeat  RepeatMode
	shuffle bool
	seed    uint64
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{pos: -1}
}

// Clone returns a deep copy of the queue.
func (q *Queue) Clone() *Queue {
	c := *q
	c.tracks = q.tracks.Clone()
	c.order = append([]int(nil), q.order...)
	return &c
}

// Replace clears the queue, adds tracks and positions it on the first
// track of the traversal order. seed is used when shuffle is enabled.
// Returns the current track, or nil if tracks is empty.
func (q *Queue) Replace(seed uint64, tracks ...Track) *Track {
	q.tracks = Tracklist(tracks).Clone()
	q.seed = seed
	q.pos = -1
	q.rebuild(-1)
	if len(q.tracks) > 0 {
		q.pos = 0
	}
	return q.Current()
}

// Current returns the current track, or nil if none.
func (q *Queue) Current() *Track {
	return q.tracks.At(q.CurrentIndex())
}

// CurrentIndex returns the playlist index of the current track (-1 if none).
func (q *Queue) CurrentIndex() int {
	if q.pos < 0 || q.pos >= len(q.order) {
		return -1
	}
	return q.order[q.pos]
}

// Next moves to the following track.
//
// With auto set the move is an end-of-track advance: RepeatOne stays on
// the current track. A manual move always leaves the track. At the end of
// the order RepeatAll wraps; otherwise Next returns nil and the position
// is unchanged.
func (q *Queue) Next(auto bool) *Track {
	if q.IsEmpty() {
		return nil
	}
	if auto && q.repeat == RepeatOne {
		return q.Current()
	}
	switch {
	case q.pos < len(q.order)-1:
		q.pos++
	case q.repeat == RepeatAll:
		q.pos = 0
	default:
		return nil
	}
	return q.Current()
}

// Previous moves to the preceding track. At the start of the order
// RepeatAll wraps to the last track; otherwise the position stays on the
// first track, which is returned.
func (q *Queue) Previous() *Track {
	if q.IsEmpty() {
		return nil
	}
	switch {
	case q.pos > 0:
		q.pos--
	case q.repeat == RepeatAll:
		q.pos = len(q.order) - 1
	default:
		q.pos = 0
	}
	return q.Current()
}

// HasNext reports whether a manual Next would return a track.
func (q *Queue) HasNext() bool {
	if q.IsEmpty() {
		return false
	}
	return q.pos < len(q.order)-1 || q.repeat == RepeatAll
}

// JumpTo moves to the given playlist index.
// Returns the track at that index, or nil if invalid.
func (q *Queue) JumpTo(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	for p, i := range q.order {
		if i == index {
			q.pos = p
			break
		}
	}
	return q.Current()
}

// RepeatMode returns the current repeat mode.
func (q *Queue) RepeatMode() RepeatMode {
	return q.repeat
}

// SetRepeatMode sets the repeat mode.
func (q *Queue) SetRepeatMode(m RepeatMode) {
	q.repeat = m
}

// Shuffle reports whether shuffle is enabled.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// SetShuffle enables or disables shuffle. Enabling derives a new order
// from seed with the current track first; disabling restores playlist
// order. The current track is kept in both cases.
func (q *Queue) SetShuffle(enabled bool, seed uint64) {
	current := q.CurrentIndex()
	q.shuffle = enabled
	q.seed = seed
	q.rebuild(current)
}

// Seed returns the seed of the current traversal order.
func (q *Queue) Seed() uint64 {
	return q.seed
}

// Tracks returns a copy of all tracks in playlist order.
func (q *Queue) Tracks() Tracklist {
	return q.tracks.Clone()
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// rebuild recomputes order and keeps current (a playlist index) as the
// current track when it is valid.
func (q *Queue) rebuild(current int) {
	n := len(q.tracks)
	q.order = make([]int, n)
	for i := range q.order {
		q.order[i] = i
	}
	if n == 0 {
		q.pos = -1
		return
	}

	if q.shuffle {
		r := rand.New(rand.NewPCG(q.seed, q.seed^0x9e3779b97f4a7c15))
		r.Shuffle(n, func(i, j int) { q.order[i], q.order[j] = q.order[j], q.order[i] })
		if current >= 0 {
			for p, i := range q.order {
				if i == current {
					q.order[0], q.order[p] = q.order[p], q.order[0]
					break
				}
			}
		}
	}

	if current < 0 {
		if q.pos >= n {
			q.pos = n - 1
		}
		return
	}
	for p, i := range q.order {
		if i == current {
			q.pos = p
			return
		}
	}
}
