package broker

import (
	"log"

	"hashbroker/internal/wire"
)

// SessionSink is the broker's only handle onto a connected client: a
// write-only, non-blocking capability that accepts a JSON string and
// delivers it to the remote client eventually. The broker must never
// block on a send to a sink.
type SessionSink interface {
	// Send enqueues message for delivery. It must return immediately;
	// a full or closed sink silently drops the message — the broker
	// does not observe send failures (see spec §7).
	Send(message []byte)
}

// hashCacheEntry records whether a subscription has ever received a
// delivery. hasPrev == false means "no previous snapshot" (distinct
// from hasPrev with an empty previous map, which means the last
// delivered snapshot was itself empty) — see spec §9's note on this
// exact ambiguity.
type hashCacheEntry struct {
	previous map[string]string
	hasPrev  bool
}

// clientRecord is the broker's per-connected-session state. It is
// mutated solely by the broker's single-owner loop.
type clientRecord struct {
	id         uint64
	sink       SessionSink
	hashCaches map[string]*hashCacheEntry
}

func newClientRecord(id uint64, sink SessionSink) *clientRecord {
	return &clientRecord{
		id:         id,
		sink:       sink,
		hashCaches: make(map[string]*hashCacheEntry),
	}
}

// placeholder installs an empty-contents, never-delivered entry to
// mark an outstanding subscription, if one is not already present.
func (c *clientRecord) placeholder(hashName string) {
	if _, ok := c.hashCaches[hashName]; !ok {
		c.hashCaches[hashName] = &hashCacheEntry{}
	}
}

// drop removes hashName from this client's hash caches. Idempotent.
func (c *clientRecord) drop(hashName string) {
	delete(c.hashCaches, hashName)
}

// update installs the snapshot's contents into this client's cache
// for snapshot's hash and emits the appropriate outbound frame.
// It returns delivered=true iff a frame was sent.
func (c *clientRecord) update(hashName string, contents map[string]string) (delivered bool) {
	entry, ok := c.hashCaches[hashName]
	if !ok {
		// Client is no longer subscribed (dropped mid-poll); nothing
		// to update, nothing to send.
		return false
	}

	hadPrev := entry.hasPrev
	previous := entry.previous

	entry.previous = contents
	entry.hasPrev = true

	if !hadPrev {
		payload, err := wire.FullSnapshot(hashName, contents)
		if err != nil {
			log.Printf("broker: marshal full snapshot for %q: %v", hashName, err)
			return false
		}
		c.sink.Send(payload)
		return true
	}

	delta, changed := Diff(contents, previous)
	if !changed {
		return false
	}

	payload, err := wire.EncodeDelta(delta.Upsert, delta.Delete)
	if err != nil {
		log.Printf("broker: marshal delta for %q: %v", hashName, err)
		return false
	}
	c.sink.Send(payload)
	return true
}
