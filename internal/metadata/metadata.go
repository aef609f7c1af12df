// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata reads the conversation tracking sheet into a
// MetadataTable keyed by conversation number.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Maggatronn/unfolded/pkg/types"
)

// Tracking-sheet column headers.
const (
	ColumnID          = "Conversation Number"
	ColumnGroup       = "Group"
	ColumnFacilitator = "Facilitator"
	ColumnTitle       = "Title"
)

// ErrMissingColumn is returned when the header row lacks the id column.
var ErrMissingColumn = errors.New("missing required column")

const bom = "\ufeff"

// Load opens the CSV at path and reads it with Read. A missing file is an
// error.
func Load(path string) (types.MetadataTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tracking sheet: %w", err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading tracking sheet %s: %w", path, err)
	}
	return table, nil
}

// Read parses a tracking sheet. Columns are located by header name; only
// the id column is required. Rows with an empty id are skipped and blank
// cells take the record defaults. Later rows replace earlier rows with the
// same id.
func Read(r io.Reader) (types.MetadataTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w %q: empty file", ErrMissingColumn, ColumnID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := indexColumns(header)
	idCol, ok := cols[ColumnID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColumnID)
	}

	table := make(types.MetadataTable)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		id := cell(row, idCol)
		if id == "" {
			continue
		}
		rec := types.MetadataRecord{
			Group:       cellByName(row, cols, ColumnGroup),
			Facilitator: cellByName(row, cols, ColumnFacilitator),
			Title:       cellByName(row, cols, ColumnTitle),
		}
		table[id] = rec.WithDefaults(id)
	}

	return table, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cellByName(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return cell(row, i)
}
