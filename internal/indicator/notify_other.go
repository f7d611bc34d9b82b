//go:build !linux

package indicator

// NewNotifier returns a no-op notifier on non-Linux platforms.
func NewNotifier() Notifier {
	return stubNotifier{}
}

type stubNotifier struct{}

func (stubNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (stubNotifier) Close(uint32) error                  { return nil }
