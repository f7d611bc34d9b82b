package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/statesync"
)

// client is the delivery side of one connection. Every outbound message,
// broadcast or reply, goes through out so the writer sends them in
// enqueue order.
type client struct {
	id     string
	out    chan []byte
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(id string, buffer int, cancel context.CancelFunc, log zerolog.Logger) *client {
	return &client{
		id:     id,
		out:    make(chan []byte, buffer),
		cancel: cancel,
		log:    log,
	}
}

// Deliver implements statesync.Deliverer. It never blocks: a full queue
// closes the connection and reports false.
func (c *client) Deliver(e statesync.Event) bool {
	data, err := json.Marshal(e)
	if err != nil {
		c.log.Error().Err(err).Uint64("sequence", e.Sequence).Msg("Failed to encode event")
		return true
	}
	return c.enqueue(data)
}

func (c *client) send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to encode reply")
		return true
	}
	return c.enqueue(data)
}

func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- data:
		return true
	default:
		c.closed = true
		c.cancel()
		c.log.Warn().Int("buffer", cap(c.out)).Msg("Outbound queue full, closing connection")
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancel()
}

var _ statesync.Deliverer = (*client)(nil)
