package gate

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

// RollbackPlan describes the two stage writes a rollback will perform.
type RollbackPlan struct {
	Model       string
	FromVersion int
	ToVersion   int
	Reason      string
}

// RollbackOptions modify a rollback.
type RollbackOptions struct {
	// ToVersion pins the rollback target. Zero means the most recent
	// archived version below current production.
	ToVersion int
	// Reason is recorded on the restored version for the audit trail.
	Reason string
	// DryRun computes and returns the plan without writing anything.
	DryRun bool
}

// Rollback demotes the current production version to archived and restores a
// previous version to production. The two stage writes are independent; a
// crash between them leaves production empty, which Reconcile reports.
func (p *Promoter) Rollback(
	ctx context.Context, name string, opts RollbackOptions,
) (*RollbackPlan, error) {
	current, err := p.registry.GetModelVersion(ctx, name, registry.ByStage(model.ProductionStage))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errors.Errorf(
				"no version of model %q is in production, nothing to roll back", name)
		}
		return nil, errors.Wrapf(err, "resolving production version of model %q", name)
	}

	target, err := p.rollbackTarget(ctx, name, current, opts.ToVersion)
	if err != nil {
		return nil, err
	}
	if target.Version == current.Version {
		return nil, errors.Errorf(
			"rollback target v%d is the current production version", target.Version)
	}

	plan := &RollbackPlan{
		Model:       name,
		FromVersion: current.Version,
		ToVersion:   target.Version,
		Reason:      opts.Reason,
	}

	logger := log.WithFields(log.Fields{
		"model": name,
		"from":  plan.FromVersion,
		"to":    plan.ToVersion,
	})

	if opts.DryRun {
		logger.Info("dry run, no stage changes made")
		return plan, nil
	}

	logger.Info("demoting current production version to archived")
	if err := p.registry.SetStage(ctx, name, current.Version, model.ArchivedStage, true); err != nil {
		return nil, errors.Wrapf(err, "demoting model %q version %d", name, current.Version)
	}

	logger.Info("restoring previous version to production")
	if err := p.registry.SetStage(ctx, name, target.Version, model.ProductionStage, true); err != nil {
		return nil, errors.Wrapf(err, "restoring model %q version %d", name, target.Version)
	}

	reason := opts.Reason
	if reason == "" {
		reason = "not specified"
	}
	rollbackEvent := model.JSONObj{
		"rollback_event": map[string]interface{}{
			"from_version": current.Version,
			"to_version":   target.Version,
			"reason":       reason,
			"triggered_by": "stagegate rollback",
		},
	}
	if err := p.registry.LogMetadata(ctx, name, target.Version, rollbackEvent); err != nil {
		// The stages already moved; a failed audit write must not undo them.
		logger.WithError(err).Warn("rollback completed but audit metadata write failed")
	}

	logger.Info("rollback complete")
	return plan, nil
}

// rollbackTarget picks the version to restore: the pinned version when given,
// otherwise the most recent archived version older than current production.
func (p *Promoter) rollbackTarget(
	ctx context.Context, name string, current *model.ModelVersion, pinned int,
) (*model.ModelVersion, error) {
	if pinned > 0 {
		target, err := p.registry.GetModelVersion(ctx, name, registry.ByNumber(pinned))
		return target, errors.Wrapf(err, "resolving rollback target v%d", pinned)
	}

	versions, err := p.registry.ListModelVersions(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "listing versions of model %q", name)
	}
	for _, mv := range versions {
		if mv.Version >= current.Version {
			continue
		}
		if mv.Stage == model.ArchivedStage || mv.Version == current.Version-1 {
			return mv, nil
		}
	}
	return nil, errors.Errorf(
		"no previous production candidate found for model %q, specify the target version explicitly",
		name)
}
