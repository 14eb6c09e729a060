package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/namelens/listlens/internal/config"
	"github.com/namelens/listlens/internal/core/store"
	apperrors "github.com/namelens/listlens/internal/errors"
	"github.com/namelens/listlens/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `List runs recorded with --store, newest first. With a run id, show that
run's per-list results.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	historyCmd.Flags().String("output", "table", "Output format: table, json, markdown, yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return apperrors.WrapInvalidInput(err, "invalid --output")
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "failed to open run history")
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup; read-only use

	formatter := output.NewFormatter(format)

	var rendered string
	if len(args) == 1 {
		runID := strings.TrimSpace(args[0])
		results, err := db.ListResults(ctx, runID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("no results recorded for run %s", runID))
		}
		rendered, err = formatter.FormatResults(runID, results)
		if err != nil {
			return err
		}
	} else {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		rendered, err = formatter.FormatRuns(runs)
		if err != nil {
			return err
		}
	}

	writeLine(cmd.OutOrStdout(), rendered)
	return nil
}
