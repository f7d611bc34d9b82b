// Package statesync owns the global sequence counter and the room registry,
// and fans sequence-stamped events out to subscribed sessions.
package statesync

import "time"

// Event is a sequence-stamped state change delivered to a room.
// Events are never mutated after Broadcast returns them.
type Event struct {
	Sequence  uint64    `json:"sequence"`
	Room      string    `json:"room"`
	Type      string    `json:"event_type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Deliverer accepts events for one session.
//
// Deliver must not block. It returns false when the session cannot accept
// the event (outbound queue full or connection gone); the manager then
// drops the session from every room.
type Deliverer interface {
	Deliver(e Event) bool
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(e Event) bool

// Deliver calls f(e).
func (f DelivererFunc) Deliver(e Event) bool { return f(e) }

// RoomInfo describes a live room.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}
