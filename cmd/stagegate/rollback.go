package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/gate"
	"github.com/stagegate/stagegate/internal/hooks"
)

//nolint:gochecknoinit
func init() {
	flags := rollbackCmd.Flags()
	flags.StringVar(&rollbackArgs.workspace, "workspace", "", "workspace holding the model")
	flags.StringVar(&rollbackArgs.model, "model", "", "model name")
	flags.IntVar(&rollbackArgs.toVersion, "to-version", 0, "version to restore (default: most recent archived)")
	flags.StringVar(&rollbackArgs.reason, "reason", "", "reason recorded in the audit trail")
	flags.BoolVar(&rollbackArgs.dryRun, "dry-run", false, "show the rollback plan without changing stages")
	_ = rollbackCmd.MarkFlagRequired("workspace")
	_ = rollbackCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(rollbackCmd)
}

var rollbackArgs struct {
	workspace string
	model     string
	toVersion int
	reason    string
	dryRun    bool
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "restore a previous production version, archiving the current one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg, err := newRegistry(rollbackArgs.workspace)
		if err != nil {
			return err
		}

		notify := newHooks()
		plan, err := gate.NewPromoter(reg).Rollback(ctx, rollbackArgs.model, gate.RollbackOptions{
			ToVersion: rollbackArgs.toVersion,
			Reason:    rollbackArgs.reason,
			DryRun:    rollbackArgs.dryRun,
		})
		if err != nil {
			notify.Fire(ctx, hooks.Event{
				Kind:     hooks.StepFailed,
				Pipeline: "promotion",
				Step:     "rollback",
				Model:    rollbackArgs.model,
				Err:      err,
			})
			return err
		}
		if !rollbackArgs.dryRun {
			notify.Fire(ctx, hooks.Event{
				Kind:     hooks.StepSucceeded,
				Pipeline: "promotion",
				Step:     "rollback",
				Model:    rollbackArgs.model,
			})
		}

		log.WithFields(log.Fields{
			"model":   plan.Model,
			"from":    plan.FromVersion,
			"to":      plan.ToVersion,
			"dry_run": rollbackArgs.dryRun,
		}).Info("rollback plan applied")
		return nil
	},
}
