package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/gate"
	"github.com/stagegate/stagegate/internal/hooks"
	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

//nolint:gochecknoinit
func init() {
	flags := promoteCmd.Flags()
	flags.StringVar(&promoteArgs.workspace, "workspace", "", "workspace holding the model")
	flags.StringVar(&promoteArgs.model, "model", "", "model name")
	flags.IntVar(&promoteArgs.version, "version", 0, "version number to promote (default: latest)")
	flags.StringVar(&promoteArgs.fromStage, "from-stage", "", "promote whichever version is in this stage")
	flags.StringVar(&promoteArgs.toStage, "to-stage", "", "target stage (staging, production, archived)")
	flags.BoolVar(&promoteArgs.force, "force", false, "demote the current stage occupant if there is one")
	flags.BoolVar(&promoteArgs.skipValidation, "skip-validation", false, "bypass the metric threshold gate")
	_ = promoteCmd.MarkFlagRequired("workspace")
	_ = promoteCmd.MarkFlagRequired("model")
	_ = promoteCmd.MarkFlagRequired("to-stage")
	rootCmd.AddCommand(promoteCmd)
}

var promoteArgs struct {
	workspace      string
	model          string
	version        int
	fromStage      string
	toStage        string
	force          bool
	skipValidation bool
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "promote a model version into a stage, gated on its metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg, err := newRegistry(promoteArgs.workspace)
		if err != nil {
			return err
		}
		toStage, err := model.ParseStage(promoteArgs.toStage)
		if err != nil {
			return err
		}
		ref := registry.Latest()
		switch {
		case promoteArgs.version > 0:
			ref = registry.ByNumber(promoteArgs.version)
		case promoteArgs.fromStage != "":
			fromStage, err := model.ParseStage(promoteArgs.fromStage)
			if err != nil {
				return err
			}
			ref = registry.ByStage(fromStage)
		}

		notify := newHooks()
		mv, err := gate.NewPromoter(reg).Promote(ctx, promoteArgs.model, ref, toStage, gate.PromoteOptions{
			Force:          promoteArgs.force,
			SkipValidation: promoteArgs.skipValidation,
		})
		if err != nil {
			notify.Fire(ctx, hooks.Event{
				Kind:     hooks.StepFailed,
				Pipeline: "promotion",
				Step:     "promote",
				Model:    promoteArgs.model,
				Err:      err,
			})
			return err
		}
		notify.Fire(ctx, hooks.Event{
			Kind:     hooks.StepSucceeded,
			Pipeline: "promotion",
			Step:     "promote",
			Model:    promoteArgs.model,
		})

		log.WithFields(log.Fields{
			"model":   mv.Name,
			"version": mv.Version,
			"stage":   mv.Stage,
		}).Info("model version promoted")
		return nil
	},
}
