// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"

	"github.com/Maggatronn/unfolded/pkg/types"
)

// Default input locations shared by every preset.
const (
	DefaultMetadataPath = "Conversation Tracking.csv"
	DefaultResultsDir   = "partial_results"
)

// Preset names.
const (
	// PresetSnapshot rebuilds the aggregate from the result files alone,
	// overwriting metadata and aborting on an unreadable file.
	PresetSnapshot = "snapshot"

	// PresetIncremental extends the previous aggregate, filling only
	// missing metadata and skipping unreadable files.
	PresetIncremental = "incremental"

	DefaultPreset = PresetIncremental
)

// Preset returns the configuration for a named preset.
func Preset(name string) (types.MergeConfig, error) {
	switch name {
	case PresetSnapshot:
		return types.MergeConfig{
			MetadataPath:  DefaultMetadataPath,
			ResultsDir:    DefaultResultsDir,
			OutputPath:    "merged_data.json",
			LoadExisting:  false,
			Backfill:      false,
			Policy:        types.PolicyOverwrite,
			SkipMalformed: false,
		}, nil
	case PresetIncremental, "":
		return types.MergeConfig{
			MetadataPath:  DefaultMetadataPath,
			ResultsDir:    DefaultResultsDir,
			OutputPath:    "merged_conversations_oregon.json",
			LoadExisting:  true,
			Backfill:      true,
			Policy:        types.PolicyFillMissing,
			SkipMalformed: true,
		}, nil
	default:
		return types.MergeConfig{}, fmt.Errorf("unknown preset %q: use %s or %s", name, PresetSnapshot, PresetIncremental)
	}
}
