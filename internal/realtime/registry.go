// Package realtime delivers best-effort push events to connected principals.
//
// A principal holds at most one live channel; the most recent connection
// wins. Nothing here is durable: the registry is rebuilt from scratch as
// clients reconnect after a restart, and an event for a principal with no
// channel is dropped rather than queued.
package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/nurpe/gigflow/internal/metrics"
	"github.com/nurpe/gigflow/internal/model"
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrChannelFull   = errors.New("channel buffer full")
)

// Channel is an addressable delivery endpoint for one connection. Send must
// not block: it either queues the event or fails.
type Channel interface {
	Send(event model.Event) error
}

type Registry interface {
	Register(principalID uuid.UUID, ch Channel)
	Unregister(ch Channel) bool
	Lookup(principalID uuid.UUID) (Channel, bool)
	Len() int
}

// ConnectionRegistry is the in-process Registry. Each method is atomic on its
// own; a Lookup followed by Send may observe a channel that has since closed.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]Channel
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{channels: make(map[uuid.UUID]Channel)}
}

// Register binds ch to the principal, replacing any earlier channel.
func (r *ConnectionRegistry) Register(principalID uuid.UUID, ch Channel) {
	r.mu.Lock()
	r.channels[principalID] = ch
	size := len(r.channels)
	r.mu.Unlock()

	metrics.ActiveConnections.Set(float64(size))
}

// Unregister removes the entry whose channel is ch. A channel that was
// already superseded by a newer connection matches nothing.
func (r *ConnectionRegistry) Unregister(ch Channel) bool {
	r.mu.Lock()
	removed := false
	for principalID, current := range r.channels {
		if current == ch {
			delete(r.channels, principalID)
			removed = true
			break
		}
	}
	size := len(r.channels)
	r.mu.Unlock()

	metrics.ActiveConnections.Set(float64(size))
	return removed
}

func (r *ConnectionRegistry) Lookup(principalID uuid.UUID) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[principalID]
	return ch, ok
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
