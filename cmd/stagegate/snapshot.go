package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/snapshot"
)

//nolint:gochecknoinit
func init() {
	flags := snapshotCmd.Flags()
	flags.StringVar(&snapshotArgs.workspace, "workspace", "", "workspace holding the model")
	flags.StringVar(&snapshotArgs.model, "model", "", "model the snapshot is recorded on")
	flags.StringVar(&snapshotArgs.environment, "environment", string(snapshot.Staging),
		"target environment (staging, production)")
	flags.StringVar(&snapshotArgs.stack, "stack", "default", "infrastructure stack name")
	flags.StringVar(&snapshotArgs.pipeline, "pipeline", "", "pipeline the snapshot captures")
	flags.StringVar(&snapshotArgs.name, "name", "", "override the derived snapshot name")
	flags.StringVar(&snapshotArgs.gitSHA, "git-sha", "", "git revision (default: configured git_sha)")
	flags.BoolVar(&snapshotArgs.run, "run", false, "trigger a pipeline run after building (staging only)")
	_ = snapshotCmd.MarkFlagRequired("workspace")
	_ = snapshotCmd.MarkFlagRequired("model")
	_ = snapshotCmd.MarkFlagRequired("pipeline")
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotArgs struct {
	workspace   string
	model       string
	environment string
	stack       string
	pipeline    string
	name        string
	gitSHA      string
	run         bool
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "build a deployable pipeline snapshot tied to a git revision",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := snapshot.ParseEnvironment(snapshotArgs.environment)
		if err != nil {
			return err
		}
		reg, err := newRegistry(snapshotArgs.workspace)
		if err != nil {
			return err
		}
		gitSHA := snapshotArgs.gitSHA
		if gitSHA == "" {
			gitSHA = conf.GitSHA
		}

		runner := snapshot.NewMetadataRunner(reg, snapshotArgs.model)
		record, err := snapshot.NewBuilder(reg, runner).Build(cmd.Context(), snapshot.Spec{
			Environment: env,
			Stack:       snapshotArgs.stack,
			Pipeline:    snapshotArgs.pipeline,
			Model:       snapshotArgs.model,
			Name:        snapshotArgs.name,
			GitSHA:      gitSHA,
			Run:         snapshotArgs.run,
		})
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"snapshot":    record.Name,
			"environment": record.Environment,
			"stack":       record.Stack,
		}).Info("snapshot registered")
		return nil
	},
}
