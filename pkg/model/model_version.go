package model

import (
	"time"
)

// Artifact names a model version's registered blobs.
const (
	// ClassifierArtifact is the serialized classifier. It is mandatory for
	// export; a version without one cannot be shipped across workspaces.
	ClassifierArtifact = "classifier"
	// ScalerArtifact is the serialized preprocessing scaler. Optional.
	ScalerArtifact = "scaler"
)

// Artifact is a reference to a stored binary blob belonging to a model
// version. The blob itself lives in the registry's artifact store; the
// reference carries enough to locate and verify it.
type Artifact struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"` // hex sha256 of the blob
}

// JSONObj is arbitrary metadata attached to a model version.
type JSONObj map[string]interface{}

// ModelVersion is one registered version of a named model. Versions are
// identified by (model name, version number) and carry the stage, the metric
// snapshot logged by evaluation, and references to named artifacts.
type ModelVersion struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Version        int                 `json:"version"`
	Stage          Stage               `json:"stage"`
	Metrics        Metrics             `json:"metrics"`
	Metadata       JSONObj             `json:"metadata,omitempty"`
	Artifacts      map[string]Artifact `json:"artifacts,omitempty"`
	PipelineRunIDs []string            `json:"pipeline_run_ids,omitempty"`
	CreationTime   time.Time           `json:"creation_time"`
	LastUpdated    time.Time           `json:"last_updated_time"`
}

// Artifact returns the named artifact reference, or false when the version
// does not carry it.
func (mv *ModelVersion) Artifact(name string) (Artifact, bool) {
	a, ok := mv.Artifacts[name]
	return a, ok
}
