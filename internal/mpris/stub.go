//go:build !linux

package mpris

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// Adapter has no bus to serve outside Linux.
type Adapter struct{}

// New always fails with ErrUnsupported; callers run without media keys.
func New(Player, zerolog.Logger) (*Adapter, error) {
	return nil, fmt.Errorf("%w on %s", ErrUnsupported, runtime.GOOS)
}

func (*Adapter) Close() error { return nil }
