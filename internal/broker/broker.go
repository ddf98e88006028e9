// Package broker implements the single-owner scheduler that is the
// core of the gateway: it polls a HashStore for subscribed hashes in
// round-robin order, maintains a per-client cache of last-delivered
// contents, and fans out diff updates to client sessions.
package broker

import (
	"context"
	"log"

	"hashbroker/internal/wire"
)

// Broker owns the client table, the subscription index, and the
// polling queue. At most one goroutine — the one running Run — ever
// mutates this state; everything else reaches the broker only through
// Inbox().
type Broker struct {
	inbox   chan SessionMessage
	statsCh chan statsRequest
	store   HashStore

	clients map[uint64]*clientRecord
	subs    *subscriptionIndex
	queue   *pollQueue
}

// StatsSnapshot is a diagnostic read of broker state, answered from
// inside the event loop so it never races with a mutation (spec's
// single-owner model has no locks to take instead).
type StatsSnapshot struct {
	ConnectedClients int
	Subscriptions    map[string]int
}

type statsRequest struct {
	reply chan StatsSnapshot
}

// New creates a Broker reading hash contents from store. inboxSize
// bounds the number of in-flight SessionMessages; session tasks publish
// without blocking and treat a full inbox as fatal to that session, so
// choose a generous capacity.
func New(store HashStore, inboxSize int) *Broker {
	return &Broker{
		inbox:   make(chan SessionMessage, inboxSize),
		statsCh: make(chan statsRequest),
		store:   store,
		clients: make(map[uint64]*clientRecord),
		subs:    newSubscriptionIndex(),
		queue:   newPollQueue(),
	}
}

// Inbox returns the channel sessions publish SessionMessages to.
// Closing it causes Run to terminate cleanly once drained.
func (b *Broker) Inbox() chan<- SessionMessage {
	return b.inbox
}

// Run drives the event loop until the inbox channel is closed. Each
// iteration drains at most one inbox message, then services at most
// one queued hash, so control-plane traffic is never starved by a long
// polling backlog and vice versa (spec §4.3, Fairness & ordering).
func (b *Broker) Run(ctx context.Context) {
	log.Println("broker: event loop started")
	for {
		b.drainStats()

		handled, open := b.drainOne()
		if !open {
			log.Println("broker: inbox closed, terminating")
			return
		}

		if !b.queue.empty() {
			b.pollOnce(ctx)
			continue
		}

		if handled {
			continue
		}

		// Inbox and queue were both empty: block for the next inbox
		// message or stats request instead of busy-spinning.
		select {
		case msg, open := <-b.inbox:
			if !open {
				log.Println("broker: inbox closed, terminating")
				return
			}
			b.handleMessage(msg)
		case req := <-b.statsCh:
			req.reply <- b.snapshotStats()
		}
	}
}

// drainStats answers every stats request currently queued, without
// blocking. Diagnostic reads are served opportunistically between
// inbox/poll ticks; they never participate in the spec's inbox-then-
// poll alternation.
func (b *Broker) drainStats() {
	for {
		select {
		case req := <-b.statsCh:
			req.reply <- b.snapshotStats()
		default:
			return
		}
	}
}

func (b *Broker) snapshotStats() StatsSnapshot {
	subs := make(map[string]int, len(b.subs.subs))
	for hashName, set := range b.subs.subs {
		subs[hashName] = len(set)
	}
	return StatsSnapshot{ConnectedClients: len(b.clients), Subscriptions: subs}
}

// drainOne performs a non-blocking receive of at most one message.
// handled reports whether a message was received and applied; open
// reports whether the inbox is still open.
func (b *Broker) drainOne() (handled, open bool) {
	select {
	case msg, isOpen := <-b.inbox:
		if !isOpen {
			return false, false
		}
		b.handleMessage(msg)
		return true, true
	default:
		return false, true
	}
}

func (b *Broker) handleMessage(msg SessionMessage) {
	switch msg.kind {
	case payloadConnect:
		b.handleConnect(msg.ClientID, msg.sink)
	case payloadDisconnect:
		b.handleDisconnect(msg.ClientID)
	case payloadAction:
		b.handleAction(msg.ClientID, msg.action)
	}
}

// handleConnect inserts a fresh client record. Duplicate ids are a
// programmer error the broker is entitled to assume never happens.
func (b *Broker) handleConnect(clientID uint64, sink SessionSink) {
	b.clients[clientID] = newClientRecord(clientID, sink)
}

// handleDisconnect removes the client record and scrubs it from every
// subscription. In-flight polls issued before the disconnect will find
// the client record absent and skip it (spec §5, Cancellation).
func (b *Broker) handleDisconnect(clientID uint64) {
	delete(b.clients, clientID)
	b.subs.removeClient(clientID)
}

func (b *Broker) handleAction(clientID uint64, action wire.ClientAction) {
	client, ok := b.clients[clientID]
	if !ok {
		// Action arrived after this client's Disconnect was already
		// processed; nothing to do.
		return
	}

	switch action.Kind {
	case wire.Request:
		for hashName := range action.HashNames {
			b.subs.add(hashName, clientID)
			client.placeholder(hashName)
			b.queue.push(hashName)
		}
	case wire.Drop:
		for hashName := range action.HashNames {
			client.drop(hashName)
			b.subs.remove(hashName, clientID)
		}
	}
}

// pollOnce dequeues the head hash, if any, and reads it from the
// backing store on behalf of its current subscribers.
func (b *Broker) pollOnce(ctx context.Context) {
	hashName, ok := b.queue.pop()
	if !ok {
		return
	}

	subscribers := b.subs.subscribers(hashName)
	if len(subscribers) == 0 {
		b.subs.prune(hashName)
		return
	}

	contents, err := b.store.HGetAll(ctx, hashName)
	if err != nil {
		log.Printf("broker: hgetall %q: %v", hashName, err)
		b.queue.push(hashName)
		return
	}

	for clientID := range subscribers {
		client, ok := b.clients[clientID]
		if !ok {
			// Disconnected between issuing the read and it
			// completing; skip silently (spec §7).
			continue
		}
		client.update(hashName, contents)
	}

	// The subscriber set was non-empty at dequeue, so the hash stays
	// under active polling; once every subscriber has dropped or
	// disconnected, the next dequeue prunes it instead.
	b.queue.push(hashName)
}

// Stats requests a diagnostic snapshot of broker state. It is safe to
// call from any goroutine: the snapshot is computed inside the event
// loop, not read out from under it.
func (b *Broker) Stats(ctx context.Context) (StatsSnapshot, error) {
	reply := make(chan StatsSnapshot, 1)
	select {
	case b.statsCh <- statsRequest{reply: reply}:
	case <-ctx.Done():
		return StatsSnapshot{}, ctx.Err()
	}

	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-ctx.Done():
		return StatsSnapshot{}, ctx.Err()
	}
}
