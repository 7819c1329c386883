// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/internal/history"
	"github.com/pdiddy/heicconv/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [batch-id]",
	Short: "Show past conversion batches",
	Long: `History lists recent conversion batches from the local ledger. Given a
batch ID (or a unique prefix of one) it shows that batch's per-file results.

Use --export to write batches with their results as YAML or JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	export, _ := cmd.Flags().GetBool("export")
	format, _ := cmd.Flags().GetString("format")
	stdout := cmd.OutOrStdout()

	store, err := history.NewStore(types.HistoryConfig{
		Enabled: true,
		Dir:     viper.GetString("history.dir"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var id string
	if len(args) > 0 {
		id = args[0]
	}

	if export {
		switch format {
		case "yaml":
			return store.ExportYAML(ctx, stdout, id)
		case "json":
			return store.ExportJSON(ctx, stdout, id)
		default:
			return fmt.Errorf("unknown format %q (want yaml or json)", format)
		}
	}

	if id != "" {
		b, err := store.Batch(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Batch %s: %s (%s, codec %s)\n\n",
			b.ID, b.Request.SourcePath, b.StartedAt.Local().Format(time.DateTime), b.Codec)
		for _, res := range b.Results {
			convert.PrintResult(stdout, res)
		}
		return nil
	}

	batches, err := store.Batches(ctx, limit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(stdout, "No batches recorded.")
		return nil
	}

	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		status := ""
		if b.Cancelled {
			status = "cancelled"
		}
		rows = append(rows, []string{
			b.ID[:8],
			b.StartedAt.Local().Format(time.DateTime),
			b.Request.SourcePath,
			strconv.Itoa(b.Converted),
			strconv.Itoa(b.Skipped),
			strconv.Itoa(b.Failed),
			status,
		})
	}
	fmt.Fprint(stdout, renderTable(
		[]string{"ID", "Started", "Path", "Converted", "Skipped", "Failed", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of batches to list")
	historyCmd.Flags().Bool("export", false, "write batches with results to stdout")
	historyCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyCmd.Flags().String("history-dir", "", "directory holding history.db")
	_ = viper.BindPFlag("history.dir", historyCmd.Flags().Lookup("history-dir"))

	rootCmd.AddCommand(historyCmd)
}
