// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Maggatronn/unfolded/internal/aggregate"
	"github.com/Maggatronn/unfolded/internal/metadata"
	"github.com/Maggatronn/unfolded/pkg/types"
)

// Summary holds the counts reported at the end of a run.
type Summary struct {
	Scan     ScanResult
	Backfill BackfillResult

	// LoadedExisting is true when a prior aggregate was read from disk.
	LoadedExisting bool

	// MetadataMappings is the number of ids in the tracking sheet.
	MetadataMappings int

	// Groups lists the distinct groups in the tracking sheet, sorted.
	Groups []string

	// Conversations is the number of conversations written.
	Conversations int

	// OutputPath is the file the aggregate was written to.
	OutputPath string
}

// Run executes one merge: it loads the tracking sheet and, when configured,
// the previous aggregate; backfills it; merges new result files; writes the
// aggregate to cfg.OutputPath; and prints a report to w.
func Run(cfg types.MergeConfig, log *zap.Logger, w io.Writer) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if w == nil {
		w = io.Discard
	}
	var summary Summary

	if err := cfg.Validate(); err != nil {
		return summary, fmt.Errorf("invalid merge config: %w", err)
	}
	policy, _ := types.ParseMergePolicy(string(cfg.Policy))

	log.Debug("loading metadata", zap.String("path", cfg.MetadataPath))
	table, err := metadata.Load(cfg.MetadataPath)
	if err != nil {
		return summary, err
	}
	summary.MetadataMappings = len(table)
	summary.Groups = table.Groups()

	existing := types.Aggregate{}
	if cfg.LoadExisting {
		log.Debug("loading existing aggregate", zap.String("path", cfg.OutputPath))
		agg, existed, err := aggregate.Load(cfg.OutputPath)
		if err != nil {
			return summary, err
		}
		if !existed {
			log.Info("no existing aggregate, starting empty", zap.String("path", cfg.OutputPath))
		}
		existing = agg
		summary.LoadedExisting = existed
	}

	if cfg.Backfill {
		log.Debug("backfilling existing conversations", zap.Int("conversations", len(existing)), zap.String("policy", string(policy)))
		summary.Backfill = Backfill(existing, table, policy)
	}

	log.Debug("scanning results", zap.String("dir", cfg.ResultsDir))
	merged, scan, err := MergeAll(table, existing, cfg.ResultsDir, ScanOptions{
		SkipMalformed: cfg.SkipMalformed,
		Log:           log,
		Out:           w,
	})
	if err != nil {
		return summary, err
	}
	summary.Scan = scan
	summary.Conversations = len(merged)

	log.Debug("writing aggregate", zap.String("path", cfg.OutputPath), zap.Int("conversations", len(merged)))
	if err := aggregate.Write(cfg.OutputPath, merged); err != nil {
		return summary, err
	}
	summary.OutputPath = cfg.OutputPath

	Report(w, summary)
	log.Info("merge complete",
		zap.Int("merged", scan.Merged),
		zap.Int("skipped", scan.Skipped),
		zap.Int("failed", scan.Failed),
		zap.Int("conversations", summary.Conversations))
	return summary, nil
}

// Report prints the end-of-run summary.
func Report(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nMerge summary: %d merged, %d skipped, %d failed (processed: %d)\n",
		s.Scan.Merged, s.Scan.Skipped, s.Scan.Failed, s.Scan.Processed())
	if s.Backfill.Conversations > 0 {
		fmt.Fprintf(w, "Backfilled: %d conversations (%d fields)\n", s.Backfill.Conversations, s.Backfill.Fields)
	}
	fmt.Fprintf(w, "Metadata mappings found: %d\n", s.MetadataMappings)
	fmt.Fprintf(w, "Groups (%d): %v\n", len(s.Groups), s.Groups)
	fmt.Fprintf(w, "Total conversations: %d\n", s.Conversations)
	if s.OutputPath != "" {
		fmt.Fprintf(w, "Wrote %s\n", s.OutputPath)
	}
}
