// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maggatronn/unfolded/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	agg, existed, err := Load(filepath.Join(t.TempDir(), "merged.json"))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotNil(t, agg)
	assert.Empty(t, agg)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "merged.json", `{
  "4274": {"t1": {"text": "hi", "group": "GroupA"}},
  "5459": {}
}`)

	agg, existed, err := Load(path)
	require.NoError(t, err)
	assert.True(t, existed)
	require.Len(t, agg, 2)
	assert.Equal(t, "hi", agg["4274"]["t1"].String("text"))
	assert.Empty(t, agg["5459"])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: `{"4274": {`},
		{name: "top level array", content: `[1, 2]`},
		{name: "conversation is not an object", content: `{"4274": "text"}`},
		{name: "turn is not an object", content: `{"4274": {"t1": 3}}`},
		{name: "null turn", content: `{"4274": {"t1": null}}`},
		{name: "empty file", content: ``},
		{name: "trailing data", content: `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "merged.json", tt.content)
			_, existed, err := Load(path)
			assert.Error(t, err)
			assert.True(t, existed)
		})
	}
}

func TestDecodeNull(t *testing.T) {
	agg, err := Decode(strings.NewReader(`null`))
	require.NoError(t, err)
	assert.Equal(t, types.Aggregate{}, agg)

	agg, err = Decode(strings.NewReader(`{"7": null}`))
	require.NoError(t, err)
	assert.Equal(t, types.Aggregate{"7": types.Conversation{}}, agg)
}

func TestReadConversation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conv_4274_x.json", `{"t1": {"text": "hi", "speaker_turn": 12, "arousal": 0.25}}`)

	conv, err := ReadConversation(path)
	require.NoError(t, err)
	require.Contains(t, conv, "t1")
	assert.Equal(t, json.Number("12"), conv["t1"]["speaker_turn"])
	assert.Equal(t, json.Number("0.25"), conv["t1"]["arousal"])
}

func TestReadConversationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: `{"t1": {"text": "hi"`},
		{name: "top level array", content: `[{"text": "hi"}]`},
		{name: "top level null", content: `null`},
		{name: "turn is a string", content: `{"t1": "hi"}`},
		{name: "turn is null", content: `{"t1": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "conv_1_a.json", tt.content)
			_, err := ReadConversation(path)
			assert.Error(t, err)
		})
	}

	_, err := ReadConversation(filepath.Join(t.TempDir(), "conv_1_missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncode(t *testing.T) {
	agg := types.Aggregate{
		"4274": {"t1": {"text": "a < b & c", "group": "GroupA"}},
	}
	data, err := Encode(agg)
	require.NoError(t, err)

	want := `{
  "4274": {
    "t1": {
      "group": "GroupA",
      "text": "a < b & c"
    }
  }
}
`
	assert.Equal(t, want, string(data))

	empty, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(empty))
}

func TestWriteRoundTripIsByteStable(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "conv_9_a.json", `{"t2": {"n": 10000000000000000000001, "f": 1.50, "words": ["a", "b"]}, "t1": {"nested": {"k": true}}}`)

	conv, err := ReadConversation(src)
	require.NoError(t, err)

	first := filepath.Join(dir, "out", "merged.json")
	require.NoError(t, Write(first, types.Aggregate{"9": conv}))

	loaded, existed, err := Load(first)
	require.NoError(t, err)
	require.True(t, existed)

	second := filepath.Join(dir, "out", "merged2.json")
	require.NoError(t, Write(second, loaded))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), "10000000000000000000001")
	assert.Contains(t, string(a), "1.50")
}
