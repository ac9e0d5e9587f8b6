package model

import (
	"fmt"
)

// Stage is the lifecycle stage of a model version. At most one version of a
// model may occupy the staging or the production stage at any time; moving a
// version into an occupied stage requires explicitly forcing out the
// occupant, which is demoted to ArchivedStage rather than dropped.
type Stage string

const (
	// LatestStage marks a freshly trained version with no explicit stage.
	LatestStage Stage = "latest"
	// StagingStage marks the version under pre-production evaluation.
	StagingStage Stage = "staging"
	// ProductionStage marks the version currently serving traffic.
	ProductionStage Stage = "production"
	// ArchivedStage is the soft-delete stage; versions are never removed.
	ArchivedStage Stage = "archived"
)

// Stages lists every valid stage.
var Stages = []Stage{LatestStage, StagingStage, ProductionStage, ArchivedStage}

// ParseStage converts a string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case LatestStage, StagingStage, ProductionStage, ArchivedStage:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("invalid stage %q (expected one of latest, staging, production, archived)", s)
	}
}

// Exclusive reports whether the stage admits at most one version per model.
func (s Stage) Exclusive() bool {
	return s == StagingStage || s == ProductionStage
}
