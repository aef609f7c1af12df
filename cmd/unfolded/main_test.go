package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maggatronn/unfolded/pkg/types"
)

func TestMergeConfigDefaults(t *testing.T) {
	initConfig()

	cfg, err := mergeConfig()
	require.NoError(t, err)
	assert.Equal(t, "Conversation Tracking.csv", cfg.MetadataPath)
	assert.Equal(t, "partial_results", cfg.ResultsDir)
	assert.Equal(t, "merged_conversations_oregon.json", cfg.OutputPath)
	assert.Equal(t, types.PolicyFillMissing, cfg.Policy)
	assert.True(t, cfg.LoadExisting)
}

func TestMergeConfigEnvironmentOverrides(t *testing.T) {
	initConfig()
	t.Setenv("UNFOLDED_MERGE_PRESET", "snapshot")
	t.Setenv("UNFOLDED_MERGE_OUTPUT", "out/custom.json")
	t.Setenv("UNFOLDED_MERGE_SKIP_MALFORMED", "true")

	cfg, err := mergeConfig()
	require.NoError(t, err)
	assert.Equal(t, "out/custom.json", cfg.OutputPath)
	assert.Equal(t, types.PolicyOverwrite, cfg.Policy)
	assert.False(t, cfg.LoadExisting)
	assert.True(t, cfg.SkipMalformed)
}

func TestMergeConfigRejectsUnknownValues(t *testing.T) {
	initConfig()

	t.Run("preset", func(t *testing.T) {
		t.Setenv("UNFOLDED_MERGE_PRESET", "weekly")
		_, err := mergeConfig()
		assert.Error(t, err)
	})
	t.Run("policy", func(t *testing.T) {
		t.Setenv("UNFOLDED_MERGE_POLICY", "sometimes")
		_, err := mergeConfig()
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijkl", 10))
	assert.Equal(t, "ünïcödé...", truncate("ünïcödéxyzw", 10))
}
