package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records every frame sent to it, in order.
type fakeSink struct {
	frames [][]byte
}

func (f *fakeSink) Send(message []byte) {
	f.frames = append(f.frames, message)
}

func (f *fakeSink) last() string {
	if len(f.frames) == 0 {
		return ""
	}
	return string(f.frames[len(f.frames)-1])
}

func TestClientUpdate_FirstDeliveryIsFullSnapshot(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")

	delivered := client.update("h", map[string]string{"a": "1"})

	require.True(t, delivered)
	require.Len(t, sink.frames, 1)
	assert.JSONEq(t, `{"h":{"a":"1"}}`, sink.last())
}

func TestClientUpdate_FirstDeliveryEmptyContentsStillSends(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")

	delivered := client.update("h", map[string]string{})

	require.True(t, delivered)
	assert.JSONEq(t, `{"h":{}}`, sink.last())
}

func TestClientUpdate_NoChangeIsSilent(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")

	require.True(t, client.update("h", map[string]string{"a": "1"}))

	delivered := client.update("h", map[string]string{"a": "1"})

	assert.False(t, delivered)
	assert.Len(t, sink.frames, 1)
}

func TestClientUpdate_DeltaAfterMutation(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")

	require.True(t, client.update("h", map[string]string{"a": "1"}))

	delivered := client.update("h", map[string]string{"a": "2", "b": "3"})

	require.True(t, delivered)
	assert.JSONEq(t, `{"upsert":{"a":"2","b":"3"},"delete":[]}`, sink.last())
}

func TestClientUpdate_FieldDeletion(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")

	require.True(t, client.update("h", map[string]string{"a": "2", "b": "3"}))

	delivered := client.update("h", map[string]string{"a": "2"})

	require.True(t, delivered)
	assert.JSONEq(t, `{"upsert":{},"delete":["b"]}`, sink.last())
}

func TestClientDrop_RemovesCacheAndIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")
	require.True(t, client.update("h", map[string]string{"a": "1"}))

	client.drop("h")
	client.drop("h") // idempotent

	_, ok := client.hashCaches["h"]
	assert.False(t, ok)
}

func TestClientUpdate_AfterDropIsNoOp(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")
	require.True(t, client.update("h", map[string]string{"a": "1"}))

	client.drop("h")
	delivered := client.update("h", map[string]string{"a": "9"})

	assert.False(t, delivered)
	assert.Len(t, sink.frames, 1) // still just the original full snapshot
}

func TestClientPlaceholder_DoesNotOverwriteExistingCache(t *testing.T) {
	sink := &fakeSink{}
	client := newClientRecord(1, sink)
	client.placeholder("h")
	require.True(t, client.update("h", map[string]string{"a": "1"}))

	client.placeholder("h") // re-request while already subscribed

	entry := client.hashCaches["h"]
	assert.True(t, entry.hasPrev)
	assert.Equal(t, map[string]string{"a": "1"}, entry.previous)
}
