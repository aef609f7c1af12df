// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"github.com/Maggatronn/unfolded/pkg/types"
)

// BackfillResult counts the changes made by Backfill.
type BackfillResult struct {
	// Conversations is the number of conversations with at least one change.
	Conversations int
	// Fields is the number of turn fields written.
	Fields int
}

// StampTurn writes rec's fields onto turn according to policy and returns
// how many fields changed. Under PolicyFillMissing a field that is already
// present is left alone, whatever its value.
func StampTurn(turn types.Turn, rec types.MetadataRecord, policy types.MergePolicy) int {
	changed := 0
	for _, kv := range rec.Fields() {
		field, value := kv[0], kv[1]
		old, present := turn[field]
		if present && policy == types.PolicyFillMissing {
			continue
		}
		if present && old == value {
			continue
		}
		turn[field] = value
		changed++
	}
	return changed
}

// Stamp applies StampTurn to every turn of conv.
func Stamp(conv types.Conversation, rec types.MetadataRecord, policy types.MergePolicy) int {
	changed := 0
	for _, turn := range conv {
		changed += StampTurn(turn, rec, policy)
	}
	return changed
}

// Backfill stamps every conversation already in agg with its metadata
// record. Each turn is checked on its own, so conversations where only
// some turns were stamped are completed. agg is modified in place.
func Backfill(agg types.Aggregate, table types.MetadataTable, policy types.MergePolicy) BackfillResult {
	var result BackfillResult
	for id, conv := range agg {
		n := Stamp(conv, table.Lookup(id), policy)
		if n > 0 {
			result.Conversations++
			result.Fields += n
		}
	}
	return result
}
