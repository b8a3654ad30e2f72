package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/2beens/trainingload/internal/activities"
	"github.com/2beens/trainingload/internal/export"
	"github.com/2beens/trainingload/internal/trainingload"
)

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parseOptionalDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := trainingload.ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newRebuildCmd(a *app) *cobra.Command {
	var athleteID int64
	var fromDay, toDay string
	var force bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild activity metrics and the daily load series of an athlete",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseOptionalDay(fromDay)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := parseOptionalDay(toDay)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			result, err := a.loadService().Rebuild(cmd.Context(), trainingload.RebuildRequest{
				AthleteID: athleteID,
				From:      from,
				To:        to,
				Force:     force,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().Int64Var(&athleteID, "athlete", 0, "Athlete ID")
	cmd.Flags().StringVar(&fromDay, "from", "", "First day to rebuild (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDay, "to", "", "Last day to rebuild (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute every activity, not only those with missing metrics")
	_ = cmd.MarkFlagRequired("athlete")

	return cmd
}

func newImportFITCmd(a *app) *cobra.Command {
	var athleteID int64
	var name string

	cmd := &cobra.Command{
		Use:   "import-fit <file.fit>",
		Short: "Store the activity recorded in a FIT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if name == "" {
				name = filepath.Base(args[0])
			}

			importer := activities.NewImporter(nil, activities.NewPsqlRepo(a.dbPool), 0, a.metricsManager)
			activity, err := importer.ImportFIT(cmd.Context(), athleteID, f, name)
			if err != nil {
				return err
			}
			return printJSON(activity)
		},
	}

	cmd.Flags().Int64Var(&athleteID, "athlete", 0, "Athlete ID")
	cmd.Flags().StringVar(&name, "name", "", "Activity name (defaults to the file name)")
	_ = cmd.MarkFlagRequired("athlete")

	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var athleteID int64
	var fromDay, toDay, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the daily metrics of an athlete to a parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := trainingload.ParseDay(fromDay)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := trainingload.ParseDay(toDay)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			rows, err := a.loadService().DailyMetrics(cmd.Context(), athleteID, from, to)
			if err != nil {
				return err
			}

			parquetBytes, err := export.DailyMetricsParquet(trainingload.ExportRows(rows))
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("daily-metrics-%d.parquet", athleteID)
			}
			if err := os.WriteFile(out, parquetBytes, 0o644); err != nil {
				return err
			}

			fmt.Printf("exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&athleteID, "athlete", 0, "Athlete ID")
	cmd.Flags().StringVar(&fromDay, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDay, "to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("athlete")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
