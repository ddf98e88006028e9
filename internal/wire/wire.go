// Package wire encodes and decodes the JSON text frames exchanged
// between a session and its client, per the gateway's wire format.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionKind distinguishes the two shapes a ClientAction may take.
type ActionKind int

const (
	// Request extends a client's subscription set.
	Request ActionKind = iota
	// Drop shrinks a client's subscription set.
	Drop
)

// ClientAction is a parsed inbound frame: a set of hash names to
// request or drop.
type ClientAction struct {
	Kind      ActionKind
	HashNames map[string]struct{}
}

// ParseError reports a malformed inbound frame. Its Error() text is
// what the session prefixes with "!!! " before writing it back to the
// client.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

func parseErrorf(format string, args ...interface{}) error {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

// ParseClientAction decodes a single inbound text frame into a
// ClientAction. The frame must be a JSON object with exactly one key,
// either "request" or "drop", whose value is an array of strings.
func ParseClientAction(data []byte) (ClientAction, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientAction{}, parseErrorf("invalid JSON: %v", err)
	}

	if len(raw) != 1 {
		return ClientAction{}, parseErrorf("expected exactly one key, got %d", len(raw))
	}

	var key string
	var value json.RawMessage
	for k, v := range raw {
		key, value = k, v
	}

	var kind ActionKind
	switch key {
	case "request":
		kind = Request
	case "drop":
		kind = Drop
	default:
		return ClientAction{}, parseErrorf("unknown action %q", key)
	}

	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return ClientAction{}, parseErrorf("%q must be an array of hash names, got null", key)
	}

	var names []string
	if err := json.Unmarshal(value, &names); err != nil {
		return ClientAction{}, parseErrorf("%q must be an array of hash names", key)
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	return ClientAction{Kind: kind, HashNames: set}, nil
}

// ErrPrefix is prepended to the text frame sent back to a client whose
// inbound frame failed to parse.
const ErrPrefix = "!!! "

// FormatParseError renders a parse failure as the outbound text frame
// described by the wire format's error convention.
func FormatParseError(err error) string {
	return ErrPrefix + err.Error()
}

// FullSnapshot encodes the first delivery for a subscription: a JSON
// object with exactly one key, the hash name, whose value is the full
// contents map.
func FullSnapshot(hashName string, contents map[string]string) ([]byte, error) {
	return json.Marshal(map[string]map[string]string{hashName: contents})
}

// deltaWire is the JSON shape of a subsequent delivery: upsert/delete pair.
type deltaWire struct {
	Upsert map[string]string `json:"upsert"`
	Delete []string          `json:"delete"`
}

// EncodeDelta renders a Delta-shaped payload as the outbound delta
// frame. The caller (Client State) is responsible for never calling
// this when both parts are empty.
func EncodeDelta(upsert map[string]string, del []string) ([]byte, error) {
	if upsert == nil {
		upsert = map[string]string{}
	}
	if del == nil {
		del = []string{}
	}
	return json.Marshal(deltaWire{Upsert: upsert, Delete: del})
}
