package exchange

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/gate"
	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/internal/store"
	"github.com/stagegate/stagegate/pkg/model"
)

// ImportOptions tune a single import.
type ImportOptions struct {
	// Stage is the stage the imported version is moved into. The move is
	// forced: whatever occupies the stage in the destination workspace is
	// demoted to archived.
	Stage model.Stage

	// SkipValidation bypasses the promotion gate check against the
	// manifest's recorded metrics.
	SkipValidation bool
}

// Importer registers an exported model version inside a destination
// workspace, verifying artifact checksums against the manifest.
type Importer struct {
	registry  registry.Registry
	store     store.Store
	workspace string
}

// NewImporter builds an Importer for the named destination workspace.
func NewImporter(r registry.Registry, s store.Store, workspace string) *Importer {
	return &Importer{registry: r, store: s, workspace: workspace}
}

// Import reads the manifest at location, validates its metrics against the
// target stage's promotion gate, re-registers the artifacts as a new version
// in the destination registry, and stages it. The location may be an export
// directory key or a full store URI, with or without the manifest file name.
// The source metrics are copied onto the new version verbatim.
func (i *Importer) Import(
	ctx context.Context, location string, opts ImportOptions,
) (*model.ModelVersion, *Manifest, error) {
	key, err := i.store.Key(location)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolving manifest location")
	}
	key = manifestKey(key)
	manifest, err := readManifest(ctx, i.store, key)
	if err != nil {
		return nil, nil, err
	}

	if opts.Stage.Exclusive() && !opts.SkipValidation {
		if err := gate.Validate(manifest.Metrics, opts.Stage); err != nil {
			return nil, nil, errors.Wrapf(err,
				"import of model %q rejected by %s gate", manifest.ModelName, opts.Stage)
		}
	}

	dir := strings.TrimSuffix(key, "/"+manifestBlob)

	modelBytes, err := i.fetchVerified(ctx, dir+"/"+modelBlob, manifest.Artifacts.ModelChecksum)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "fetching classifier for model %q", manifest.ModelName)
	}

	var scalerBytes []byte
	if manifest.Artifacts.Scaler != "" {
		scalerBytes, err = i.fetchVerified(ctx, dir+"/"+scalerBlob, manifest.Artifacts.ScalerChecksum)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "fetching scaler for model %q", manifest.ModelName)
		}
	}

	manifest.AppendChain(ChainEntry{
		Action:    ActionImported,
		Workspace: i.workspace,
		Stage:     opts.Stage,
		Timestamp: time.Now().UTC(),
	})

	mv, err := i.registry.CreateModelVersion(ctx, manifest.ModelName, registry.VersionSeed{
		Metrics: manifest.Metrics.Clone(),
		Metadata: model.JSONObj{
			"imported_from":   manifest.Source.Workspace,
			"source_version":  manifest.Source.ModelVersion,
			"export_path":     manifest.ExportPath,
			"promotion_chain": manifest.PromotionChain,
		},
		PipelineRunIDs: append([]string(nil), manifest.Source.PipelineRunIDs...),
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating version of model %q", manifest.ModelName)
	}

	if _, err := i.registry.PutArtifact(
		ctx, mv.Name, mv.Version, model.ClassifierArtifact, bytes.NewReader(modelBytes),
	); err != nil {
		return nil, nil, errors.Wrapf(err, "storing classifier on model %q version %d", mv.Name, mv.Version)
	}
	if scalerBytes != nil {
		if _, err := i.registry.PutArtifact(
			ctx, mv.Name, mv.Version, model.ScalerArtifact, bytes.NewReader(scalerBytes),
		); err != nil {
			return nil, nil, errors.Wrapf(err, "storing scaler on model %q version %d", mv.Name, mv.Version)
		}
	}

	if err := i.registry.SetStage(ctx, mv.Name, mv.Version, opts.Stage, true); err != nil {
		return nil, nil, errors.Wrapf(err, "staging model %q version %d", mv.Name, mv.Version)
	}
	mv.Stage = opts.Stage

	log.WithFields(log.Fields{
		"model":     mv.Name,
		"version":   mv.Version,
		"stage":     opts.Stage,
		"source":    manifest.Source.Workspace,
		"workspace": i.workspace,
	}).Info("imported model version")
	return mv, manifest, nil
}

// fetchVerified downloads one blob and checks its sha256 against the
// manifest's recorded checksum before anything is written to the registry.
func (i *Importer) fetchVerified(ctx context.Context, key, checksum string) ([]byte, error) {
	r, err := i.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", key)
	}

	sum := sha256.Sum256(payload)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return nil, errors.Errorf("checksum mismatch for %q: manifest %s, downloaded %s",
			key, checksum, got)
	}
	return payload, nil
}
