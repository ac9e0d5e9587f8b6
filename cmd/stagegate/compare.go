package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/compare"
)

//nolint:gochecknoinit
func init() {
	flags := compareCmd.Flags()
	flags.StringVar(&compareArgs.workspace, "workspace", "", "workspace holding the model")
	flags.StringVar(&compareArgs.model, "model", "", "model name")
	flags.StringVar(&compareArgs.batch, "batch", "", "JSON file with champion and challenger predictions")
	flags.BoolVar(&compareArgs.record, "log", false, "record the comparison on the champion version's metadata")
	_ = compareCmd.MarkFlagRequired("workspace")
	_ = compareCmd.MarkFlagRequired("model")
	_ = compareCmd.MarkFlagRequired("batch")
	rootCmd.AddCommand(compareCmd)
}

var compareArgs struct {
	workspace string
	model     string
	batch     string
	record    bool
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "compare champion and challenger predictions over a scored batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(compareArgs.workspace)
		if err != nil {
			return err
		}
		batch, err := compare.ReadBatch(compareArgs.batch)
		if err != nil {
			return err
		}

		report, err := compare.NewRunner(reg).Run(cmd.Context(), compareArgs.model, batch, compareArgs.record)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Markdown())
		return nil
	},
}
