package gate

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/pkg/model"
)

// Finding is one stage-invariant violation discovered by Reconcile.
type Finding struct {
	Stage    model.Stage
	Versions []int
	Detail   string
}

// Reconcile audits the stage bookkeeping of a model. Promotion and rollback
// are multi-step remote writes with no transaction, so a crash can leave a
// stage doubly occupied or production empty. Reconcile reports such states;
// it never mutates them.
func (p *Promoter) Reconcile(ctx context.Context, name string) ([]Finding, error) {
	versions, err := p.registry.ListModelVersions(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "listing versions of model %q", name)
	}

	byStage := map[model.Stage][]int{}
	for _, mv := range versions {
		byStage[mv.Stage] = append(byStage[mv.Stage], mv.Version)
	}

	var findings []Finding
	for _, stage := range []model.Stage{model.StagingStage, model.ProductionStage} {
		if occupants := byStage[stage]; len(occupants) > 1 {
			findings = append(findings, Finding{
				Stage:    stage,
				Versions: occupants,
				Detail: fmt.Sprintf(
					"%d versions occupy %s, expected at most one", len(occupants), stage),
			})
		}
	}
	if len(byStage[model.ProductionStage]) == 0 && len(byStage[model.ArchivedStage]) > 0 {
		findings = append(findings, Finding{
			Stage:  model.ProductionStage,
			Detail: "production is empty but archived versions exist, a rollback or promotion may have been interrupted",
		})
	}
	return findings, nil
}
