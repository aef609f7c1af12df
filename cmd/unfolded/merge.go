// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Maggatronn/unfolded/internal/merge"
	"github.com/Maggatronn/unfolded/pkg/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge result files into the aggregate conversations document",
	Long: `Merge reads the tracking sheet, loads the previous aggregate (incremental
preset), fills in missing group/facilitator/title fields on conversations it
already holds, adds every conv_<id>_*.json file from the results directory
whose id is not yet present, and rewrites the aggregate.

Presets:
  incremental  extend merged_conversations_oregon.json, fill missing fields
               only, skip unreadable result files (default)
  snapshot     rebuild merged_data.json from the result files, abort on an
               unreadable result file

Any individual setting can be overridden by flag, by the merge section of
the config file, or by UNFOLDED_MERGE_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.String("preset", merge.DefaultPreset, "preset: incremental or snapshot")
	f.String("metadata", "", "tracking sheet CSV (default \""+merge.DefaultMetadataPath+"\")")
	f.String("results-dir", "", "directory of conv_<id>_*.json files (default \""+merge.DefaultResultsDir+"\")")
	f.String("output", "", "aggregate file to read and rewrite (default depends on preset)")
	f.String("policy", "", "backfill policy: overwrite or fill-missing (default depends on preset)")
	f.Bool("backfill", false, "stamp conversations already in the aggregate (default depends on preset)")
	f.Bool("load-existing", false, "start from the existing aggregate (default depends on preset)")
	f.Bool("skip-malformed", false, "skip unreadable result files instead of aborting (default depends on preset)")

	for key, flag := range map[string]string{
		"merge.preset":         "preset",
		"merge.metadata":       "metadata",
		"merge.results_dir":    "results-dir",
		"merge.output":         "output",
		"merge.policy":         "policy",
		"merge.backfill":       "backfill",
		"merge.load_existing":  "load-existing",
		"merge.skip_malformed": "skip-malformed",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := mergeConfig()
	if err != nil {
		return err
	}

	summary, err := merge.Run(cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Scan.HasFailures() {
		fmt.Fprintf(os.Stderr, "warning: %d result file(s) skipped: %v\n", summary.Scan.Failed, summary.Scan.FailedFiles)
	}
	return nil
}

// mergeConfig starts from the selected preset and applies every merge.*
// setting that was given by flag, environment or config file.
func mergeConfig() (types.MergeConfig, error) {
	cfg, err := merge.Preset(viper.GetString("merge.preset"))
	if err != nil {
		return cfg, err
	}

	if viper.IsSet("merge.metadata") {
		cfg.MetadataPath = viper.GetString("merge.metadata")
	}
	if viper.IsSet("merge.results_dir") {
		cfg.ResultsDir = viper.GetString("merge.results_dir")
	}
	if viper.IsSet("merge.output") {
		cfg.OutputPath = viper.GetString("merge.output")
	}
	if viper.IsSet("merge.policy") {
		policy, err := types.ParseMergePolicy(viper.GetString("merge.policy"))
		if err != nil {
			return cfg, err
		}
		cfg.Policy = policy
	}
	if viper.IsSet("merge.backfill") {
		cfg.Backfill = viper.GetBool("merge.backfill")
	}
	if viper.IsSet("merge.load_existing") {
		cfg.LoadExisting = viper.GetBool("merge.load_existing")
	}
	if viper.IsSet("merge.skip_malformed") {
		cfg.SkipMalformed = viper.GetBool("merge.skip_malformed")
	}

	return cfg, cfg.Validate()
}
