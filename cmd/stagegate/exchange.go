package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/exchange"
	"github.com/stagegate/stagegate/internal/hooks"
	"github.com/stagegate/stagegate/pkg/model"
)

//nolint:gochecknoinit
func init() {
	flags := exchangeCmd.Flags()
	flags.StringVar(&exchangeArgs.model, "model", "", "model name")
	flags.StringVar(&exchangeArgs.sourceWorkspace, "source-workspace", "", "workspace to export from")
	flags.StringVar(&exchangeArgs.destWorkspace, "dest-workspace", "", "workspace to import into")
	flags.StringVar(&exchangeArgs.sourceStage, "source-stage", string(model.StagingStage),
		"stage of the version to export")
	flags.StringVar(&exchangeArgs.destStage, "dest-stage", string(model.StagingStage),
		"stage the imported version is moved into")
	flags.BoolVar(&exchangeArgs.exportOnly, "export-only", false, "export without importing")
	flags.StringVar(&exchangeArgs.importFrom, "import-from", "",
		"import a previous export from this bucket path instead of exporting")
	flags.BoolVar(&exchangeArgs.skipValidation, "skip-validation", false,
		"bypass the destination stage's metric gate")
	flags.StringVar(&exchangeArgs.bucket, "exchange-bucket", "", "override the configured exchange bucket")
	rootCmd.AddCommand(exchangeCmd)
}

var exchangeArgs struct {
	model           string
	sourceWorkspace string
	destWorkspace   string
	sourceStage     string
	destStage       string
	exportOnly      bool
	importFrom      string
	skipValidation  bool
	bucket          string
}

var exchangeCmd = &cobra.Command{
	Use:   "cross-workspace",
	Short: "move a model version between workspaces through the exchange bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		objStore, err := newStore(ctx, exchangeArgs.bucket)
		if err != nil {
			return err
		}
		notify := newHooks()

		manifestLocation := exchangeArgs.importFrom
		if manifestLocation == "" {
			if exchangeArgs.model == "" || exchangeArgs.sourceWorkspace == "" {
				return errors.New("export requires --model and --source-workspace")
			}
			sourceStage, err := model.ParseStage(exchangeArgs.sourceStage)
			if err != nil {
				return err
			}
			sourceReg, err := newRegistry(exchangeArgs.sourceWorkspace)
			if err != nil {
				return err
			}

			manifest, err := exchange.NewExporter(sourceReg, objStore, exchangeArgs.sourceWorkspace).
				Export(ctx, exchangeArgs.model, sourceStage)
			if err != nil {
				notify.Fire(ctx, hooks.Event{
					Kind:     hooks.StepFailed,
					Pipeline: "cross-workspace",
					Step:     "export",
					Model:    exchangeArgs.model,
					Err:      err,
				})
				return err
			}
			log.WithField("path", manifest.ExportPath).Info("export complete")

			if exchangeArgs.exportOnly {
				return nil
			}
			manifestLocation = manifest.ExportPath
		}

		if exchangeArgs.destWorkspace == "" {
			return errors.New("import requires --dest-workspace")
		}
		destStage, err := model.ParseStage(exchangeArgs.destStage)
		if err != nil {
			return err
		}
		destReg, err := newRegistry(exchangeArgs.destWorkspace)
		if err != nil {
			return err
		}

		mv, _, err := exchange.NewImporter(destReg, objStore, exchangeArgs.destWorkspace).
			Import(ctx, manifestLocation, exchange.ImportOptions{
				Stage:          destStage,
				SkipValidation: exchangeArgs.skipValidation,
			})
		if err != nil {
			notify.Fire(ctx, hooks.Event{
				Kind:     hooks.StepFailed,
				Pipeline: "cross-workspace",
				Step:     "import",
				Model:    exchangeArgs.model,
				Err:      err,
			})
			return err
		}
		notify.Fire(ctx, hooks.Event{
			Kind:     hooks.PipelineSucceeded,
			Pipeline: "cross-workspace",
			Model:    mv.Name,
		})

		log.WithFields(log.Fields{
			"model":     mv.Name,
			"version":   mv.Version,
			"stage":     mv.Stage,
			"workspace": exchangeArgs.destWorkspace,
		}).Info("import complete")
		return nil
	},
}
