package types

import (
	"fmt"
	"strings"
)

// MergePolicy selects how metadata fields are written onto turns that
// already exist in a loaded aggregate.
type MergePolicy string

const (
	// PolicyOverwrite replaces group, facilitator and title on every turn.
	PolicyOverwrite MergePolicy = "overwrite"

	// PolicyFillMissing adds a field only where the turn lacks it.
	PolicyFillMissing MergePolicy = "fill-missing"
)

// ParseMergePolicy converts a policy name to a MergePolicy. It accepts the
// canonical names and the OVERWRITE / FILL_MISSING_ONLY spellings.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite":
		return PolicyOverwrite, nil
	case "fill-missing", "fill_missing", "fill_missing_only", "fill-missing-only":
		return PolicyFillMissing, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q: use overwrite or fill-missing", s)
	}
}

// MergeConfig holds settings for one merge run.
type MergeConfig struct {
	// MetadataPath is the tracking-sheet CSV (e.g. "Conversation Tracking.csv").
	MetadataPath string `json:"metadata" yaml:"metadata"`

	// ResultsDir holds the per-conversation conv_<id>_*.json files.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// OutputPath is the aggregate file read at start and overwritten at the end.
	OutputPath string `json:"output" yaml:"output"`

	// LoadExisting controls whether a prior aggregate at OutputPath is loaded.
	LoadExisting bool `json:"load_existing" yaml:"load_existing"`

	// Backfill controls whether conversations in the loaded aggregate are
	// re-stamped with metadata.
	Backfill bool `json:"backfill" yaml:"backfill"`

	// Policy governs the backfill pass.
	Policy MergePolicy `json:"policy" yaml:"policy"`

	// SkipMalformed reports and skips unreadable result files instead of
	// aborting the run.
	SkipMalformed bool `json:"skip_malformed" yaml:"skip_malformed"`
}

// Validate checks that the paths are set and the policy is known.
func (c MergeConfig) Validate() error {
	if c.MetadataPath == "" {
		return fmt.Errorf("metadata path is required")
	}
	if c.ResultsDir == "" {
		return fmt.Errorf("results directory is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if _, err := ParseMergePolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}

// CatalogConfig holds settings for the conversation catalog.
type CatalogConfig struct {
	// Dir is the catalog directory (contains catalog.db and exports).
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of query results (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
