package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/gate"
)

//nolint:gochecknoinit
func init() {
	flags := reconcileCmd.Flags()
	flags.StringVar(&reconcileArgs.workspace, "workspace", "", "workspace holding the model")
	flags.StringVar(&reconcileArgs.model, "model", "", "model name")
	_ = reconcileCmd.MarkFlagRequired("workspace")
	_ = reconcileCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileArgs struct {
	workspace string
	model     string
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "audit a model's stage assignments and report invariant violations",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(reconcileArgs.workspace)
		if err != nil {
			return err
		}

		findings, err := gate.NewPromoter(reg).Reconcile(cmd.Context(), reconcileArgs.model)
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			log.WithField("model", reconcileArgs.model).Info("stage assignments are consistent")
			return nil
		}

		for _, f := range findings {
			log.WithFields(log.Fields{
				"model":    reconcileArgs.model,
				"stage":    f.Stage,
				"versions": f.Versions,
			}).Warn(f.Detail)
		}
		return errors.Errorf("found %d stage invariant violations for model %q",
			len(findings), reconcileArgs.model)
	},
}
