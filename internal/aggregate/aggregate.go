// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate reads and writes the merged conversations document and
// the per-conversation result files it is built from.
package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Maggatronn/unfolded/pkg/types"
)

// Load reads the aggregate at path. A missing file is not an error: Load
// returns an empty aggregate and existed=false. A file that is present but
// does not decode to an aggregate is an error.
func Load(path string) (agg types.Aggregate, existed bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Aggregate{}, false, nil
		}
		return nil, false, fmt.Errorf("opening aggregate: %w", err)
	}
	defer f.Close()

	agg, err = Decode(f)
	if err != nil {
		return nil, true, fmt.Errorf("decoding aggregate %s: %w", path, err)
	}
	return agg, true, nil
}

// Decode reads one aggregate document from r. A JSON null decodes to an
// empty aggregate and a null conversation to one with no turns; a null
// turn is an error.
func Decode(r io.Reader) (types.Aggregate, error) {
	var agg types.Aggregate
	if err := decodeStrict(r, &agg); err != nil {
		return nil, err
	}
	if agg == nil {
		agg = types.Aggregate{}
	}
	for id, conv := range agg {
		if conv == nil {
			agg[id] = types.Conversation{}
			continue
		}
		for key, turn := range conv {
			if turn == nil {
				return nil, fmt.Errorf("conversation %s: turn %q is null", id, key)
			}
		}
	}
	return agg, nil
}

// ReadConversation decodes a single result file: a JSON object of turn key
// to turn object.
func ReadConversation(path string) (types.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	var conv types.Conversation
	if err := decodeStrict(f, &conv); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if conv == nil {
		return nil, fmt.Errorf("decoding %s: top-level value is null", filepath.Base(path))
	}
	for key, turn := range conv {
		if turn == nil {
			return nil, fmt.Errorf("decoding %s: turn %q is null", filepath.Base(path), key)
		}
	}
	return conv, nil
}

// decodeStrict decodes exactly one JSON value into v, keeping numbers as
// json.Number. Trailing data after the value is an error.
func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty document")
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

// Encode renders agg as indented JSON with sorted keys and a trailing
// newline. The output for a given aggregate is always the same bytes.
func Encode(agg types.Aggregate) ([]byte, error) {
	if agg == nil {
		agg = types.Aggregate{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg); err != nil {
		return nil, fmt.Errorf("marshaling aggregate: %w", err)
	}
	return buf.Bytes(), nil
}

// Write overwrites path with the encoded aggregate, creating the parent
// directory if needed. The write is not atomic.
func Write(path string, agg types.Aggregate) error {
	data, err := Encode(agg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing aggregate: %w", err)
	}
	return nil
}
