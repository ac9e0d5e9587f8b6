package exchange

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/internal/store"
	"github.com/stagegate/stagegate/pkg/model"
)

// Exporter copies a model version's artifacts out of a workspace registry
// into the shared exchange bucket, alongside a manifest describing them.
type Exporter struct {
	registry  registry.Registry
	store     store.Store
	workspace string
}

// NewExporter builds an Exporter for the named source workspace.
func NewExporter(r registry.Registry, s store.Store, workspace string) *Exporter {
	return &Exporter{registry: r, store: s, workspace: workspace}
}

// Export serializes the version of modelName currently in the given stage.
// The classifier artifact is mandatory; a missing scaler is tolerated and
// simply omitted from the manifest.
func (e *Exporter) Export(ctx context.Context, modelName string, stage model.Stage) (*Manifest, error) {
	mv, err := e.registry.GetModelVersion(ctx, modelName, registry.ByStage(stage))
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s version of model %q", stage, modelName)
	}

	now := time.Now().UTC()
	dir := exportKey(modelName, e.workspace, now)

	modelKey := dir + "/" + modelBlob
	modelSum, err := e.copyArtifact(ctx, mv, model.ClassifierArtifact, modelKey)
	if err != nil {
		return nil, errors.Wrapf(err, "exporting classifier for model %q version %d", modelName, mv.Version)
	}

	artifacts := Artifacts{
		Model:         e.store.URI(modelKey),
		ModelChecksum: modelSum,
	}

	scalerKey := dir + "/" + scalerBlob
	scalerSum, err := e.copyArtifact(ctx, mv, model.ScalerArtifact, scalerKey)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		log.WithFields(log.Fields{
			"model":   modelName,
			"version": mv.Version,
		}).Info("model version has no scaler artifact, skipping")
	case err != nil:
		return nil, errors.Wrapf(err, "exporting scaler for model %q version %d", modelName, mv.Version)
	default:
		artifacts.Scaler = e.store.URI(scalerKey)
		artifacts.ScalerChecksum = scalerSum
	}

	manifest := &Manifest{
		ModelName:       modelName,
		ExportTimestamp: now,
		ExportPath:      e.store.URI(dir),
		Source: Source{
			Workspace:      e.workspace,
			ModelVersion:   mv.Version,
			ModelVersionID: mv.ID,
			Stage:          mv.Stage,
			PipelineRunIDs: append([]string(nil), mv.PipelineRunIDs...),
			CreatedAt:      mv.CreationTime,
		},
		Metrics:   mv.Metrics.Clone(),
		Artifacts: artifacts,
		PromotionChain: []ChainEntry{{
			Action:    ActionExported,
			Workspace: e.workspace,
			Stage:     mv.Stage,
			Version:   mv.Version,
			Timestamp: now,
		}},
	}

	if err := writeManifest(ctx, e.store, dir+"/"+manifestBlob, manifest); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"model":   modelName,
		"version": mv.Version,
		"path":    manifest.ExportPath,
	}).Info("exported model version")
	return manifest, nil
}

// copyArtifact streams one registry artifact into the store, returning the
// hex sha256 of the bytes written.
func (e *Exporter) copyArtifact(
	ctx context.Context, mv *model.ModelVersion, artifact, key string,
) (string, error) {
	r, _, err := e.registry.GetArtifact(ctx, mv.Name, mv.Version, artifact)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	h := sha256.New()
	if err := e.store.Put(ctx, key, io.TeeReader(r, h)); err != nil {
		return "", errors.Wrapf(err, "uploading %q", key)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
