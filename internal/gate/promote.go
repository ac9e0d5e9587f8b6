package gate

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

// Promoter performs stage transitions against a registry.
type Promoter struct {
	registry registry.Registry
}

// NewPromoter returns a Promoter using the given registry.
func NewPromoter(reg registry.Registry) *Promoter {
	return &Promoter{registry: reg}
}

// PromoteOptions modify a promotion.
type PromoteOptions struct {
	// Force demotes whichever version occupies the target stage instead of
	// failing with a conflict. The occupant moves to archived.
	Force bool
	// SkipValidation bypasses the metric threshold gate.
	SkipValidation bool
}

// Promote moves the version selected by ref into toStage. Validation runs
// against the version's logged metrics unless skipped. The occupancy check
// and the stage write are two separate registry calls with no transaction
// around them; a conflicting promotion racing between the two is resolved by
// the registry's own stage write.
func (p *Promoter) Promote(
	ctx context.Context,
	name string,
	ref registry.VersionRef,
	toStage model.Stage,
	opts PromoteOptions,
) (*model.ModelVersion, error) {
	mv, err := p.registry.GetModelVersion(ctx, name, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving model %q for promotion", name)
	}

	logger := log.WithFields(log.Fields{
		"model":   name,
		"version": mv.Version,
		"from":    mv.Stage,
		"to":      toStage,
	})

	if opts.SkipValidation {
		logger.Warn("skipping promotion validation checks")
	} else if toStage != model.ArchivedStage {
		if err := Validate(mv.Metrics, toStage); err != nil {
			return nil, err
		}
		logger.Info("promotion validation passed")
	}

	if toStage.Exclusive() {
		occupant, err := p.registry.GetModelVersion(ctx, name, registry.ByStage(toStage))
		switch {
		case errors.Is(err, registry.ErrNotFound):
			// Stage is free.
		case err != nil:
			return nil, errors.Wrapf(err, "checking %s stage occupancy", toStage)
		case occupant.Version != mv.Version && !opts.Force:
			return nil, errors.Wrapf(registry.ErrStageOccupied,
				"version %d of model %q is already in %s (use force to demote it)",
				occupant.Version, name, toStage)
		case occupant.Version != mv.Version:
			logger.WithField("occupant", occupant.Version).
				Warn("force promotion will demote the stage occupant")
		}
	}

	if err := p.registry.SetStage(ctx, name, mv.Version, toStage, opts.Force); err != nil {
		return nil, errors.Wrapf(err, "promoting model %q version %d to %s",
			name, mv.Version, toStage)
	}

	logger.Info("promotion complete")
	mv.Stage = toStage
	return mv, nil
}
