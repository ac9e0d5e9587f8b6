package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/report"
	"github.com/stagegate/stagegate/pkg/model"
)

//nolint:gochecknoinit
func init() {
	flags := reportCmd.Flags()
	flags.StringVar(&reportArgs.metrics, "metrics", "", "JSON file of metric name to value")
	flags.StringVar(&reportArgs.stage, "stage", string(model.StagingStage),
		"stage whose gate the metrics are reported against")
	flags.IntVar(&reportArgs.rows, "rows", 0, "dataset row count")
	flags.IntVar(&reportArgs.columns, "columns", 0, "dataset column count")
	flags.IntVar(&reportArgs.missingCells, "missing-cells", 0, "count of empty dataset cells")
	flags.IntVar(&reportArgs.duplicateRows, "duplicate-rows", 0, "count of duplicated dataset rows")
	_ = reportCmd.MarkFlagRequired("metrics")
	rootCmd.AddCommand(reportCmd)
}

var reportArgs struct {
	metrics       string
	stage         string
	rows          int
	columns       int
	missingCells  int
	duplicateRows int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "render a markdown training report of data quality and gate checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := model.ParseStage(reportArgs.stage)
		if err != nil {
			return err
		}

		bs, err := os.ReadFile(reportArgs.metrics) // #nosec G304
		if err != nil {
			return errors.Wrap(err, "reading metrics file")
		}
		var metrics model.Metrics
		if err := json.Unmarshal(bs, &metrics); err != nil {
			return errors.Wrap(err, "parsing metrics file")
		}

		quality := report.DataQuality{
			Rows:          reportArgs.rows,
			Columns:       reportArgs.columns,
			MissingCells:  reportArgs.missingCells,
			DuplicateRows: reportArgs.duplicateRows,
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Training(metrics, quality, stage))
		return nil
	},
}
