// Package registry defines the narrow capability interface stagegate needs
// from a model registry. Stage bookkeeping, lineage, and artifact storage are
// owned by the registry platform; this package only addresses it, with an
// HTTP client for remote workspaces and an in-memory implementation for local
// use and tests.
package registry

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/pkg/model"
)

// ErrNotFound is returned when a model, version, or artifact does not exist.
var ErrNotFound = errors.New("not found")

// ErrStageOccupied is returned by SetStage when the target stage already
// holds a different version and force was not given.
var ErrStageOccupied = errors.New("target stage already occupied")

// VersionRef selects a model version: a positive version number, a stage
// name, or latest.
type VersionRef struct {
	Number int
	Stage  model.Stage
}

// ByNumber selects a version by its number.
func ByNumber(n int) VersionRef { return VersionRef{Number: n} }

// ByStage selects whichever version currently occupies the stage.
func ByStage(s model.Stage) VersionRef { return VersionRef{Stage: s} }

// Latest selects the most recently created version.
func Latest() VersionRef { return VersionRef{Stage: model.LatestStage} }

// VersionSeed carries the fields of a version to be created by an import.
type VersionSeed struct {
	Metrics        model.Metrics
	Metadata       model.JSONObj
	PipelineRunIDs []string
}

// Registry is the capability surface stagegate requires of a model registry.
// Implementations must treat SetStage as a single remote write; stagegate
// performs no locking of its own, so concurrent promotions against the same
// model are resolved by the registry, not here.
type Registry interface {
	// GetModelVersion resolves ref within the named model.
	GetModelVersion(ctx context.Context, name string, ref VersionRef) (*model.ModelVersion, error)

	// ListModelVersions returns all versions of the model, newest first.
	ListModelVersions(ctx context.Context, name string) ([]*model.ModelVersion, error)

	// CreateModelVersion registers a new version of the model with the next
	// version number and no stage.
	CreateModelVersion(ctx context.Context, name string, seed VersionSeed) (*model.ModelVersion, error)

	// SetStage moves the version into the stage. When the stage is exclusive
	// and occupied by another version: without force it fails with
	// ErrStageOccupied and changes nothing; with force the occupant is
	// demoted to archived first.
	SetStage(ctx context.Context, name string, version int, stage model.Stage, force bool) error

	// LogMetadata merges metadata into the version's metadata map.
	LogMetadata(ctx context.Context, name string, version int, metadata model.JSONObj) error

	// GetArtifact streams the named artifact blob of the version. The caller
	// must close the reader.
	GetArtifact(ctx context.Context, name string, version int, artifact string) (io.ReadCloser, *model.Artifact, error)

	// PutArtifact stores an artifact blob on the version and returns its
	// recorded reference.
	PutArtifact(ctx context.Context, name string, version int, artifact string, r io.Reader) (*model.Artifact, error)
}
