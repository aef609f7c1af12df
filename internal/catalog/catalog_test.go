// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/Maggatronn/unfolded/internal/aggregate"
	"github.com/Maggatronn/unfolded/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "catalog")
	store, err := NewStore(types.CatalogConfig{Dir: dir, MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func turn(speaker, group, facilitator, title string) types.Turn {
	return types.Turn{
		"speaker_name":         speaker,
		"words":                []any{"hello"},
		types.FieldGroup:       group,
		types.FieldFacilitator: facilitator,
		types.FieldTitle:       title,
	}
}

func sampleAggregate() types.Aggregate {
	return types.Aggregate{
		"4274": {
			"t1": turn("Ann", "GroupA", "Alice", "My Talk"),
			"t2": turn("Ben", "GroupA", "Alice", "My Talk"),
		},
		"5459": {
			"t1": turn("Cy", "Oregon", "Bob", "Rivers"),
		},
		"6000": {
			"t1": turn("Ann", "Oregon", "Alice", "Roads"),
			"t2": turn("Ann", "Oregon", "Alice", "Roads"),
			"t3": turn("Dee", "Oregon", "Alice", "Roads"),
		},
	}
}

// --- ingest ---

func TestIngest(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	var out bytes.Buffer

	summary, err := store.Ingest(ctx, sampleAggregate(), &out)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Indexed: 3}, summary)
	assert.Contains(t, out.String(), "indexed 4274 (2 turns)")

	again, err := store.Ingest(ctx, sampleAggregate(), &out)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Skipped: 3}, again)
	assert.Equal(t, 3, again.Total())
}

func TestIngestUpdatesChangedAndRemovesMissing(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, sampleAggregate(), &bytes.Buffer{})
	require.NoError(t, err)

	changed := sampleAggregate()
	changed["4274"]["t3"] = turn("Eve", "GroupA", "Alice", "My Talk")
	delete(changed, "5459")

	summary, err := store.Ingest(ctx, changed, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Updated: 1, Skipped: 1, Removed: 1}, summary)

	conv, err := store.Conversation(ctx, "4274")
	require.NoError(t, err)
	assert.Len(t, conv, 3)

	_, err = store.Conversation(ctx, "5459")
	assert.Error(t, err)
}

func TestIngestHonoursCancellation(t *testing.T) {
	store, _ := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Ingest(ctx, sampleAggregate(), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestFile(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "merged.json")

	_, err := store.IngestFile(ctx, path, &bytes.Buffer{})
	assert.Error(t, err, "missing aggregate must be an error")

	require.NoError(t, aggregate.Write(path, sampleAggregate()))
	summary, err := store.IngestFile(ctx, path, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Indexed)
}

func TestConversationRecord(t *testing.T) {
	conv := types.Conversation{
		"b": {types.FieldGroup: "Later", types.FieldTitle: "T"},
		"a": {types.FieldGroup: "Early"},
	}
	rec := conversationRecord("12", conv)
	assert.Equal(t, types.MetadataRecord{Group: "Early", Facilitator: "Unknown", Title: "T"}, rec)

	assert.Equal(t, types.DefaultRecord("13"), conversationRecord("13", types.Conversation{}))
}

// --- query ---

func TestQuery(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	_, err := store.Ingest(ctx, sampleAggregate(), &bytes.Buffer{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    QueryOptions
		wantIDs []string
	}{
		{name: "all", opts: QueryOptions{}, wantIDs: []string{"4274", "5459", "6000"}},
		{name: "by group", opts: QueryOptions{Group: "Oregon"}, wantIDs: []string{"5459", "6000"}},
		{name: "by facilitator", opts: QueryOptions{Facilitator: "Alice"}, wantIDs: []string{"4274", "6000"}},
		{name: "by speaker", opts: QueryOptions{Speaker: "Ann"}, wantIDs: []string{"4274", "6000"}},
		{name: "combined", opts: QueryOptions{Group: "Oregon", Facilitator: "Alice"}, wantIDs: []string{"6000"}},
		{name: "limit", opts: QueryOptions{MaxResults: 1}, wantIDs: []string{"4274"}},
		{name: "no match", opts: QueryOptions{Group: "Nobody"}, wantIDs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	results, err := store.Query(ctx, QueryOptions{Group: "Oregon", Facilitator: "Alice"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ConversationSummary{
		ID: "6000", Group: "Oregon", Facilitator: "Alice", Title: "Roads",
		TurnCount: 3, Speakers: []string{"Ann", "Dee"},
	}, results[0])
}

func TestGroups(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	_, err := store.Ingest(ctx, sampleAggregate(), &bytes.Buffer{})
	require.NoError(t, err)

	groups, err := store.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{
		{Group: "GroupA", Conversations: 1, Turns: 2},
		{Group: "Oregon", Conversations: 2, Turns: 4},
	}, groups)
}

func TestConversationPreservesNumbers(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	agg := types.Aggregate{"1": {"t1": {"start_time": json.Number("12.50")}}}
	_, err := store.Ingest(ctx, agg, &bytes.Buffer{})
	require.NoError(t, err)

	conv, err := store.Conversation(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.50"), conv["t1"]["start_time"])
}

// --- export ---

func TestExport(t *testing.T) {
	store, dir := testStore(t)
	ctx := context.Background()
	_, err := store.Ingest(ctx, sampleAggregate(), &bytes.Buffer{})
	require.NoError(t, err)

	yamlPath, err := store.ExportYAML(ctx, QueryOptions{Group: "Oregon"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export.yaml"), yamlPath)

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML Export
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Len(t, fromYAML.Conversations, 2)
	assert.Len(t, fromYAML.Groups, 2)

	jsonPath, err := store.ExportJSON(ctx, QueryOptions{})
	require.NoError(t, err)
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON Export
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Len(t, fromJSON.Conversations, 3)
	assert.Equal(t, "4274", fromJSON.Conversations[0].ID)
}
