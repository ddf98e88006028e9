package broker

import "hashbroker/internal/wire"

// payloadKind tags the variant held in a SessionMessage.
type payloadKind int

const (
	payloadConnect payloadKind = iota
	payloadDisconnect
	payloadAction
)

// SessionMessage is what a session enqueues on the broker's inbox: an
// event scoped to one client id.
type SessionMessage struct {
	ClientID uint64
	kind     payloadKind
	sink     SessionSink
	action   wire.ClientAction
}

// Connect builds the message a session sends once, immediately after
// its client id is assigned, to register its outbound sink with the
// broker.
func Connect(clientID uint64, sink SessionSink) SessionMessage {
	return SessionMessage{ClientID: clientID, kind: payloadConnect, sink: sink}
}

// Disconnect builds the message a session sends exactly once, when it
// stops for any reason (timeout, close, error).
func Disconnect(clientID uint64) SessionMessage {
	return SessionMessage{ClientID: clientID, kind: payloadDisconnect}
}

// Action builds the message carrying a parsed request/drop from the
// client.
func Action(clientID uint64, action wire.ClientAction) SessionMessage {
	return SessionMessage{ClientID: clientID, kind: payloadAction, action: action}
}
