package statesync

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/room"
)

type session struct {
	rooms map[string]struct{}
	sink  Deliverer
}

// Manager is the ordering authority and topic-based fan-out.
type Manager struct {
	seq atomic.Uint64

	// mu guards rooms and sessions. Broadcast holds it from sequence
	// issue through enqueue so that per-room delivery follows sequence order.
	mu       sync.Mutex
	rooms    map[string]map[string]struct{}
	sessions map[string]*session

	log zerolog.Logger
	now func() time.Time
}

// New creates an empty manager.
func New(log zerolog.Logger) *Manager {
	return &Manager{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]*session),
		log:      log.With().Str("component", "statesync").Logger(),
		now:      time.Now,
	}
}

// NextSequence atomically increments and returns the global sequence.
func (m *Manager) NextSequence() uint64 {
	return m.seq.Add(1)
}

// GlobalSequence returns the current sequence without incrementing it.
func (m *Manager) GlobalSequence() uint64 {
	return m.seq.Load()
}

// Register binds a session to its delivery sink. Registering an existing
// session replaces its sink and keeps its memberships.
func (m *Manager) Register(sessionID string, sink Deliverer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionLocked(sessionID)
	s.sink = sink
}

// Unregister removes a session and all its memberships.
func (m *Manager) Unregister(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSessionLocked(sessionID)
}

// Subscribe adds the session to the room. It is idempotent.
func (m *Manager) Subscribe(sessionID, roomName string) error {
	if _, err := room.Parse(roomName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomName]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[roomName] = members
		m.log.Debug().Str("room", roomName).Msg("Room created")
	}
	members[sessionID] = struct{}{}
	m.sessionLocked(sessionID).rooms[roomName] = struct{}{}
	return nil
}

// Unsubscribe removes the session from one room. The room is destroyed
// when its last member leaves.
func (m *Manager) Unsubscribe(sessionID, roomName string) error {
	if _, err := room.Parse(roomName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveLocked(sessionID, roomName)
	if s, ok := m.sessions[sessionID]; ok {
		delete(s.rooms, roomName)
	}
	return nil
}

// UnsubscribeClient removes the session from every room it belongs to.
// Calling it again is a no-op.
func (m *Manager) UnsubscribeClient(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	for name := range s.rooms {
		m.leaveLocked(sessionID, name)
	}
	s.rooms = make(map[string]struct{})
}

// Broadcast stamps payload with a fresh sequence number and timestamp and
// delivers it to every current subscriber of roomName.
//
// An invalid room name fails without consuming a sequence number.
// Subscribers whose sink rejects the event are dropped from every room.
func (m *Manager) Broadcast(roomName, eventType string, payload any) (Event, error) {
	if _, err := room.Parse(roomName); err != nil {
		return Event{}, err
	}

	m.mu.Lock()
	e := Event{
		Sequence:  m.NextSequence(),
		Room:      roomName,
		Type:      eventType,
		Payload:   payload,
		Timestamp: m.now().UTC(),
	}

	var dropped []string
	for id := range m.rooms[roomName] {
		s := m.sessions[id]
		if s == nil || s.sink == nil {
			continue
		}
		if !s.sink.Deliver(e) {
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		m.removeSessionLocked(id)
	}
	m.mu.Unlock()

	for _, id := range dropped {
		m.log.Warn().
			Str("session", id).
			Str("room", roomName).
			Uint64("sequence", e.Sequence).
			Msg("Dropped slow subscriber")
	}
	m.log.Debug().
		Uint64("sequence", e.Sequence).
		Str("room", roomName).
		Str("type", eventType).
		Msg("Broadcast")

	return e, nil
}

// Rooms returns a sorted snapshot of live rooms.
func (m *Manager) Rooms() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]RoomInfo, 0, len(m.rooms))
	for name, members := range m.rooms {
		infos = append(infos, RoomInfo{Name: name, Members: len(members)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Members returns the sorted session ids subscribed to roomName.
func (m *Manager) Members(roomName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.rooms[roomName]))
	for id := range m.rooms[roomName] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SessionRooms returns the sorted rooms a session belongs to.
func (m *Manager) SessionRooms(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sessions returns the number of known sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sessionLocked(id string) *session {
	s, ok := m.sessions[id]
	if !ok {
		s = &session{rooms: make(map[string]struct{})}
		m.sessions[id] = s
	}
	return s
}

func (m *Manager) leaveLocked(sessionID, roomName string) {
	members, ok := m.rooms[roomName]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(m.rooms, roomName)
		m.log.Debug().Str("room", roomName).Msg("Room destroyed")
	}
}

func (m *Manager) removeSessionLocked(id string) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	for name := range s.rooms {
		m.leaveLocked(id, name)
	}
	delete(m.sessions, id)
}
