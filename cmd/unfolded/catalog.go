// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Maggatronn/unfolded/internal/catalog"
	"github.com/Maggatronn/unfolded/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Index the merged aggregate and query it (store, query, groups, show, export)",
	Long: `Catalog keeps a local SQLite index of the merged aggregate so that
conversations can be listed by group, facilitator or speaker. Use
subcommands to index the aggregate, query it, or export a summary.`,
}

// --- store subcommand ---

var catalogStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Index the merged aggregate into the catalog",
	Long: `Store reads the aggregate written by "merge" and indexes every
conversation. Unchanged conversations are skipped on subsequent runs and
conversations no longer present in the aggregate are removed.`,
	Args: cobra.NoArgs,
	RunE: runCatalogStore,
}

func runCatalogStore(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		cfg, err := mergeConfig()
		if err != nil {
			return err
		}
		input = cfg.OutputPath
	}

	store, err := catalog.NewStore(catalogConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Debug("indexing aggregate", zap.String("path", input))
	summary, err := store.IngestFile(context.Background(), input, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d conversation(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var catalogQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List catalogued conversations by group, facilitator or speaker",
	Args:  cobra.NoArgs,
	RunE:  runCatalogQuery,
}

func runCatalogQuery(cmd *cobra.Command, args []string) error {
	store, err := catalog.NewStore(catalogConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Query(context.Background(), queryOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(results, jsonOutput)
}

func formatQueryOutput(results []catalog.ConversationSummary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-16s  %-16s  %-36s  %s\n",
		"ID", "Group", "Facilitator", "Title", "Turns")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))

	for _, r := range results {
		fmt.Fprintf(os.Stdout, "%-10s  %-16s  %-16s  %-36s  %d\n",
			truncate(r.ID, 10), truncate(r.Group, 16), truncate(r.Facilitator, 16),
			truncate(r.Title, 36), r.TurnCount)
	}

	fmt.Fprintf(os.Stdout, "\n%d conversations\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- groups subcommand ---

var catalogGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show conversation and turn counts per group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := catalog.NewStore(catalogConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		groups, err := store.Groups(context.Background())
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("%-24s  %4d conversations  %6d turns\n", g.Group, g.Conversations, g.Turns)
		}
		return nil
	},
}

// --- show subcommand ---

var catalogShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print the stored turns of one conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := catalog.NewStore(catalogConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		conv, err := store.Conversation(context.Background(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	},
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the catalog (or the subset matching the filters) to
export.yaml or export.json in the catalog directory.`,
	Args: cobra.NoArgs,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := catalog.NewStore(catalogConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func catalogConfig() types.CatalogConfig {
	dir := viper.GetString("catalog.dir")
	if dir == "" {
		dir = "catalog"
	}
	return types.CatalogConfig{
		Dir:        dir,
		MaxResults: viper.GetInt("catalog.max_results"),
	}
}

func queryOptsFromFlags(cmd *cobra.Command) catalog.QueryOptions {
	group, _ := cmd.Flags().GetString("group")
	facilitator, _ := cmd.Flags().GetString("facilitator")
	speaker, _ := cmd.Flags().GetString("speaker")
	limit, _ := cmd.Flags().GetInt("limit")

	return catalog.QueryOptions{
		Group:       group,
		Facilitator: facilitator,
		Speaker:     speaker,
		MaxResults:  limit,
	}
}

func addFilterFlags(cmd *cobra.Command, limitHelp string) {
	cmd.Flags().String("group", "", "filter by group")
	cmd.Flags().String("facilitator", "", "filter by facilitator")
	cmd.Flags().String("speaker", "", "filter by speaker name")
	cmd.Flags().Int("limit", 0, limitHelp)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("dir", "catalog", "catalog directory (contains catalog.db and exports)")
	catalogCmd.PersistentFlags().Int("max-results", 50, "default maximum number of query results")
	_ = viper.BindPFlag("catalog.dir", catalogCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("catalog.max_results", catalogCmd.PersistentFlags().Lookup("max-results"))

	catalogStoreCmd.Flags().String("input", "", "aggregate file to index (default: the merge output)")

	addFilterFlags(catalogQueryCmd, "maximum results (0 = use default)")
	catalogQueryCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(catalogExportCmd, "maximum conversations to export (0 = all)")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	catalogCmd.AddCommand(catalogStoreCmd)
	catalogCmd.AddCommand(catalogQueryCmd)
	catalogCmd.AddCommand(catalogGroupsCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
