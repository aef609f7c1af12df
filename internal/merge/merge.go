// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge combines per-conversation result files into one aggregate,
// stamping every turn with group, facilitator and title from the tracking
// sheet.
//
// A run moves through LOAD_METADATA, LOAD_EXISTING_AGGREGATE,
// BACKFILL_EXISTING, SCAN_AND_MERGE_NEW, PERSIST and REPORT. Any error in a
// phase other than a skippable result file aborts the run before the
// output is touched.
package merge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Maggatronn/unfolded/internal/aggregate"
	"github.com/Maggatronn/unfolded/pkg/types"
)

// ScanOptions controls how MergeAll treats the results directory.
type ScanOptions struct {
	// SkipMalformed reports and skips a result file that cannot be read
	// or named, instead of returning an error.
	SkipMalformed bool

	// Log receives diagnostics. Nil disables logging.
	Log *zap.Logger

	// Out receives one status line per result file. Nil discards them.
	Out io.Writer
}

// ScanResult holds the outcome of scanning the results directory.
type ScanResult struct {
	Merged  int
	Skipped int
	Failed  int

	// FailedFiles lists the names of the files counted in Failed.
	FailedFiles []string
}

// Processed returns the number of result files handled without error.
func (r ScanResult) Processed() int {
	return r.Merged + r.Skipped
}

// Total returns the number of result files seen.
func (r ScanResult) Total() int {
	return r.Merged + r.Skipped + r.Failed
}

// HasFailures reports whether any result file was skipped as unreadable.
func (r ScanResult) HasFailures() bool {
	return r.Failed > 0
}

// MergeAll scans resultsDir for conv_<id>_*.json files and returns a new
// aggregate holding the conversations of existing plus one conversation per
// new id, every turn stamped from table. Ids already present are skipped,
// so the first file seen for an id wins. Files are visited in name order.
// A missing results directory yields no new conversations.
func MergeAll(table types.MetadataTable, existing types.Aggregate, resultsDir string, opts ScanOptions) (types.Aggregate, ScanResult, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := opts.Out
	if w == nil {
		w = io.Discard
	}

	merged := make(types.Aggregate, len(existing))
	for id, conv := range existing {
		merged[id] = conv
	}

	var result ScanResult

	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("results directory not found", zap.String("dir", resultsDir))
			return merged, result, nil
		}
		return nil, result, fmt.Errorf("reading results directory %s: %w", resultsDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isResultCandidate(name) {
			continue
		}

		fail := func(err error) error {
			if !opts.SkipMalformed {
				return err
			}
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			log.Warn("skipping result file", zap.String("file", name), zap.Error(err))
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, name)
			return nil
		}

		id, err := ParseConversationID(name)
		if err != nil {
			if err := fail(err); err != nil {
				return nil, result, err
			}
			continue
		}

		if merged.Has(id) {
			fmt.Fprintf(w, "skipped: %s (conversation %s already present)\n", name, id)
			log.Debug("conversation already present", zap.String("file", name), zap.String("id", id))
			result.Skipped++
			continue
		}

		conv, err := aggregate.ReadConversation(filepath.Join(resultsDir, name))
		if err != nil {
			if err := fail(err); err != nil {
				return nil, result, err
			}
			continue
		}

		Stamp(conv, table.Lookup(id), types.PolicyOverwrite)
		merged[id] = conv

		fmt.Fprintf(w, "merged:  %s (conversation %s, %d turns)\n", name, id, len(conv))
		log.Debug("merged conversation", zap.String("file", name), zap.String("id", id), zap.Int("turns", len(conv)))
		result.Merged++
	}

	return merged, result, nil
}
