package indicator

import (
	"fmt"
	"strings"
	"sync"
)

// Urgency is a freedesktop notification urgency.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string
	Timeout    int32  // ms, -1 = server default, 0 = never expire
	ReplacesID uint32 // 0 = new notification
	Urgency    Urgency
}

// Notifier sends desktop notifications. Notify returns 0 and a nil error
// when notifications are unavailable.
type Notifier interface {
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

const notifyTimeout = 4000

// NotifySink shows directives as a single desktop notification that each
// directive replaces.
type NotifySink struct {
	n Notifier

	mu     sync.Mutex
	lastID uint32
}

// NewNotifySink creates a sink sending through n.
func NewNotifySink(n Notifier) *NotifySink {
	return &NotifySink{n: n}
}

// Apply shows d. The stopped directive closes the notification.
func (s *NotifySink) Apply(d Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Animation == AnimationOff {
		if s.lastID == 0 {
			return nil
		}
		id := s.lastID
		s.lastID = 0
		return s.n.Close(id)
	}

	urgency := UrgencyLow
	if d.Name == Error {
		urgency = UrgencyCritical
	}
	id, err := s.n.Notify(Notification{
		Title:      "musicbox: " + strings.ToUpper(d.Name[:1]) + d.Name[1:],
		Body:       fmt.Sprintf("%s %s at %.0f%%", d.Color, d.Animation, d.Brightness*100),
		Icon:       "audio-x-generic",
		Timeout:    notifyTimeout,
		ReplacesID: s.lastID,
		Urgency:    urgency,
	})
	if err != nil {
		return err
	}
	s.lastID = id
	return nil
}

var _ Sink = (*NotifySink)(nil)
