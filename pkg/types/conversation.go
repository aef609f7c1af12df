// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the unfolded merge tool:
// transcript turns and conversations, the merged aggregate, the metadata
// table read from the tracking sheet, and per-command configuration.
package types

import "sort"

// Turn field names stamped from a MetadataRecord.
const (
	FieldGroup       = "group"
	FieldFacilitator = "facilitator"
	FieldTitle       = "title"
)

// Turn is one speaker entry within a conversation. Fields are kept as an
// open mapping; numeric values decode as json.Number so re-encoding is
// byte-stable.
type Turn map[string]any

// Has reports whether the turn carries field, regardless of its value.
func (t Turn) Has(field string) bool {
	_, ok := t[field]
	return ok
}

// String returns the field as a string, or "" when it is absent or not a
// string.
func (t Turn) String(field string) string {
	s, _ := t[field].(string)
	return s
}

// Conversation maps turn keys to turns for one conversation id.
type Conversation map[string]Turn

// Keys returns the turn keys in sorted order.
func (c Conversation) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Aggregate maps conversation ids to conversations. It is the document
// written to the merged output file.
type Aggregate map[string]Conversation

// IDs returns the conversation ids in sorted order.
func (a Aggregate) IDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether the aggregate already contains conversation id.
func (a Aggregate) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// TurnCount returns the total number of turns across all conversations.
func (a Aggregate) TurnCount() int {
	n := 0
	for _, c := range a {
		n += len(c)
	}
	return n
}
