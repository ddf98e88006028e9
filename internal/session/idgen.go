package session

import "sync"

// IDGenerator assigns client ids: process-unique, monotonically
// increasing, never reused (spec §3). It is shared across every
// session-spawn site, so the counter is guarded by a mutex rather than
// left to a package-level variable.
type IDGenerator struct {
	mu   sync.Mutex
	next uint64
}

// NewIDGenerator returns a generator whose first Next() call yields 0.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next client id.
func (g *IDGenerator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	return id
}
