// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
)

// DefaultUnknown is used for a blank or missing group or facilitator.
const DefaultUnknown = "Unknown"

// MetadataRecord holds the tracking-sheet attributes of one conversation.
type MetadataRecord struct {
	// Group is the cohort the conversation belongs to.
	Group string `json:"group" yaml:"group"`

	// Facilitator is the person who ran the conversation.
	Facilitator string `json:"facilitator" yaml:"facilitator"`

	// Title is the conversation's display title.
	Title string `json:"title" yaml:"title"`
}

// DefaultTitle returns the title used when the sheet has none for id.
func DefaultTitle(id string) string {
	return fmt.Sprintf("Conversation %s", id)
}

// DefaultRecord returns the record used for an id with no sheet row.
func DefaultRecord(id string) MetadataRecord {
	return MetadataRecord{
		Group:       DefaultUnknown,
		Facilitator: DefaultUnknown,
		Title:       DefaultTitle(id),
	}
}

// WithDefaults fills blank fields of r with the defaults for id.
func (r MetadataRecord) WithDefaults(id string) MetadataRecord {
	if r.Group == "" {
		r.Group = DefaultUnknown
	}
	if r.Facilitator == "" {
		r.Facilitator = DefaultUnknown
	}
	if r.Title == "" {
		r.Title = DefaultTitle(id)
	}
	return r
}

// Fields returns the record as turn field/value pairs in a fixed order.
func (r MetadataRecord) Fields() [][2]string {
	return [][2]string{
		{FieldGroup, r.Group},
		{FieldFacilitator, r.Facilitator},
		{FieldTitle, r.Title},
	}
}

// MetadataTable maps conversation ids to their tracking-sheet record.
type MetadataTable map[string]MetadataRecord

// Lookup returns the record for id, or DefaultRecord(id) when the table has
// no row for it.
func (t MetadataTable) Lookup(id string) MetadataRecord {
	if r, ok := t[id]; ok {
		return r.WithDefaults(id)
	}
	return DefaultRecord(id)
}

// Groups returns the distinct groups named in the table, sorted. The
// DefaultUnknown placeholder is not a group and is left out.
func (t MetadataTable) Groups() []string {
	seen := make(map[string]bool)
	for _, r := range t {
		if r.Group == "" || r.Group == DefaultUnknown {
			continue
		}
		seen[r.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
