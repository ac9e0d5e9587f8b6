// Package gate implements stage promotion for model versions: metric
// threshold validation, stage transitions with occupant handling, rollback,
// and a reconciliation audit over the registry's stage invariants.
package gate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/pkg/model"
)

// Requirements returns the minimum metric values a version must meet before
// entering the stage. Stages without gates (latest, archived) return nil.
// Thresholds are inclusive: a metric exactly at its minimum passes.
func Requirements(stage model.Stage) model.Metrics {
	switch stage {
	case model.StagingStage:
		return model.Metrics{
			model.MetricAccuracy:  0.70,
			model.MetricPrecision: 0.70,
			model.MetricRecall:    0.70,
		}
	case model.ProductionStage:
		return model.Metrics{
			model.MetricAccuracy:  0.80,
			model.MetricPrecision: 0.80,
			model.MetricRecall:    0.80,
		}
	default:
		return nil
	}
}

// Validate checks metrics against the stage's requirements. Missing required
// metrics fail immediately, naming exactly the missing keys, without
// evaluating thresholds; otherwise every below-threshold metric is collected
// into a single combined error. A nil return means the promotion may proceed.
func Validate(metrics model.Metrics, stage model.Stage) error {
	if missing := metrics.Missing(model.RequiredMetrics); len(missing) > 0 {
		return errors.Errorf(
			"model missing required metrics for %s promotion: %v", stage, missing)
	}

	requirements := Requirements(stage)
	if len(requirements) == 0 {
		return nil
	}

	var failures *multierror.Error
	for _, name := range requirements.Names() {
		minValue := requirements[name]
		if actual := metrics[name]; actual < minValue {
			failures = multierror.Append(failures, fmt.Errorf(
				"%s: %.3f < %.3f (required)", name, actual, minValue))
		}
	}
	if failures != nil {
		return errors.Wrapf(failures.ErrorOrNil(),
			"model does not meet %s promotion requirements", stage)
	}
	return nil
}
