package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientAction_Request(t *testing.T) {
	action, err := ParseClientAction([]byte(`{"request":["h1","h2"]}`))
	require.NoError(t, err)

	assert.Equal(t, Request, action.Kind)
	assert.Equal(t, map[string]struct{}{"h1": {}, "h2": {}}, action.HashNames)
}

func TestParseClientAction_Drop(t *testing.T) {
	action, err := ParseClientAction([]byte(`{"drop":["h1"]}`))
	require.NoError(t, err)

	assert.Equal(t, Drop, action.Kind)
	assert.Equal(t, map[string]struct{}{"h1": {}}, action.HashNames)
}

func TestParseClientAction_DuplicatesCollapseToSet(t *testing.T) {
	action, err := ParseClientAction([]byte(`{"request":["h1","h1","h2"]}`))
	require.NoError(t, err)

	assert.Len(t, action.HashNames, 2)
}

func TestParseClientAction_InvalidJSON(t *testing.T) {
	_, err := ParseClientAction([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(FormatParseError(err), ErrPrefix))
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseClientAction_UnknownKey(t *testing.T) {
	_, err := ParseClientAction([]byte(`{"drp":["h"]}`))
	require.Error(t, err)
	assert.Contains(t, FormatParseError(err), "!!! ")
	assert.Contains(t, err.Error(), `unknown action "drp"`)
}

func TestParseClientAction_MultipleKeysIsError(t *testing.T) {
	_, err := ParseClientAction([]byte(`{"request":["h1"],"drop":["h2"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly one key")
}

func TestParseClientAction_NonArrayValueIsError(t *testing.T) {
	_, err := ParseClientAction([]byte(`{"request":"h1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an array")
}

func TestParseClientAction_NullValueIsError(t *testing.T) {
	_, err := ParseClientAction([]byte(`{"request":null}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an array")
}

func TestParseClientAction_EmptyArray(t *testing.T) {
	action, err := ParseClientAction([]byte(`{"request":[]}`))
	require.NoError(t, err)
	assert.Empty(t, action.HashNames)
}

func TestFormatParseError_AlwaysPrefixed(t *testing.T) {
	_, err := ParseClientAction([]byte(`{}`))
	require.Error(t, err)
	formatted := FormatParseError(err)
	assert.Regexp(t, `^!!! `, formatted)
}

func TestFullSnapshot_SingleKeyedByHashName(t *testing.T) {
	payload, err := FullSnapshot("h1", map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"h1":{"a":"1"}}`, string(payload))
}

func TestFullSnapshot_EmptyContentsStillEmitted(t *testing.T) {
	payload, err := FullSnapshot("h1", map[string]string{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"h1":{}}`, string(payload))
}

func TestEncodeDelta_UpsertAndDelete(t *testing.T) {
	payload, err := EncodeDelta(map[string]string{"a": "2"}, []string{"b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"upsert":{"a":"2"},"delete":["b"]}`, string(payload))
}

func TestEncodeDelta_NilFieldsEncodeAsEmpty(t *testing.T) {
	payload, err := EncodeDelta(nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"upsert":{},"delete":[]}`, string(payload))
}
