package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/pkg/model"
)

// Memory is an in-memory Registry. It backs the local workspace mode and the
// test suites, and it enforces the one-version-per-exclusive-stage invariant
// the remote platform guarantees.
type Memory struct {
	mu     sync.Mutex
	models map[string][]*model.ModelVersion
	blobs  map[string][]byte // key: name/version/artifact
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		models: map[string][]*model.ModelVersion{},
		blobs:  map[string][]byte{},
	}
}

// AddVersion registers a fully formed version, assigning the next number if
// the seed has none. Intended for test setup and local bootstrapping.
func (m *Memory) AddVersion(mv model.ModelVersion) *model.ModelVersion {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.models[mv.Name]
	if mv.Version == 0 {
		mv.Version = len(versions) + 1
	}
	if mv.ID == "" {
		mv.ID = uuid.New().String()
	}
	if mv.Stage == "" {
		mv.Stage = model.LatestStage
	}
	if mv.CreationTime.IsZero() {
		mv.CreationTime = time.Now().UTC()
	}
	if mv.Artifacts == nil {
		mv.Artifacts = map[string]model.Artifact{}
	}
	stored := mv
	m.models[mv.Name] = append(versions, &stored)
	return &stored
}

func (m *Memory) find(name string, ref VersionRef) (*model.ModelVersion, error) {
	versions := m.models[name]
	if len(versions) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "model %q", name)
	}
	if ref.Number > 0 {
		for _, mv := range versions {
			if mv.Version == ref.Number {
				return mv, nil
			}
		}
		return nil, errors.Wrapf(ErrNotFound, "model %q version %d", name, ref.Number)
	}
	if ref.Stage == model.LatestStage || ref.Stage == "" {
		return versions[len(versions)-1], nil
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Stage == ref.Stage {
			return versions[i], nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "model %q has no version in stage %q", name, ref.Stage)
}

// GetModelVersion implements Registry.
func (m *Memory) GetModelVersion(
	_ context.Context, name string, ref VersionRef,
) (*model.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mv, err := m.find(name, ref)
	if err != nil {
		return nil, err
	}
	copied := *mv
	return &copied, nil
}

// ListModelVersions implements Registry.
func (m *Memory) ListModelVersions(
	_ context.Context, name string,
) ([]*model.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.models[name]
	if len(versions) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "model %q", name)
	}
	out := make([]*model.ModelVersion, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		copied := *versions[i]
		out = append(out, &copied)
	}
	return out, nil
}

// CreateModelVersion implements Registry.
func (m *Memory) CreateModelVersion(
	_ context.Context, name string, seed VersionSeed,
) (*model.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	mv := &model.ModelVersion{
		ID:             uuid.New().String(),
		Name:           name,
		Version:        len(m.models[name]) + 1,
		Stage:          model.LatestStage,
		Metrics:        seed.Metrics.Clone(),
		Metadata:       seed.Metadata,
		PipelineRunIDs: seed.PipelineRunIDs,
		Artifacts:      map[string]model.Artifact{},
		CreationTime:   now,
		LastUpdated:    now,
	}
	if mv.Metadata == nil {
		mv.Metadata = model.JSONObj{}
	}
	m.models[name] = append(m.models[name], mv)
	copied := *mv
	return &copied, nil
}

// SetStage implements Registry.
func (m *Memory) SetStage(
	_ context.Context, name string, version int, stage model.Stage, force bool,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.find(name, ByNumber(version))
	if err != nil {
		return err
	}

	if stage.Exclusive() {
		occupant, err := m.find(name, ByStage(stage))
		if err == nil && occupant.Version != target.Version {
			if !force {
				return errors.Wrapf(ErrStageOccupied,
					"version %d of model %q is already in %s", occupant.Version, name, stage)
			}
			log.WithFields(log.Fields{
				"model":   name,
				"version": occupant.Version,
				"stage":   stage,
			}).Warn("demoting stage occupant to archived")
			occupant.Stage = model.ArchivedStage
			occupant.LastUpdated = time.Now().UTC()
		}
	}

	target.Stage = stage
	target.LastUpdated = time.Now().UTC()
	return nil
}

// LogMetadata implements Registry.
func (m *Memory) LogMetadata(
	_ context.Context, name string, version int, metadata model.JSONObj,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mv, err := m.find(name, ByNumber(version))
	if err != nil {
		return err
	}
	if mv.Metadata == nil {
		mv.Metadata = model.JSONObj{}
	}
	for k, v := range metadata {
		mv.Metadata[k] = v
	}
	mv.LastUpdated = time.Now().UTC()
	return nil
}

// GetArtifact implements Registry.
func (m *Memory) GetArtifact(
	_ context.Context, name string, version int, artifact string,
) (io.ReadCloser, *model.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mv, err := m.find(name, ByNumber(version))
	if err != nil {
		return nil, nil, err
	}
	ref, ok := mv.Artifacts[artifact]
	if !ok {
		return nil, nil, errors.Wrapf(ErrNotFound,
			"artifact %q of model %q version %d", artifact, name, version)
	}
	blob, ok := m.blobs[blobKey(name, version, artifact)]
	if !ok {
		return nil, nil, errors.Wrapf(ErrNotFound,
			"blob for artifact %q of model %q version %d", artifact, name, version)
	}
	return io.NopCloser(bytes.NewReader(blob)), &ref, nil
}

// PutArtifact implements Registry.
func (m *Memory) PutArtifact(
	_ context.Context, name string, version int, artifact string, r io.Reader,
) (*model.Artifact, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading artifact blob")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mv, err := m.find(name, ByNumber(version))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(blob)
	ref := model.Artifact{
		Name:     artifact,
		URI:      fmt.Sprintf("mem://%s", blobKey(name, version, artifact)),
		Size:     int64(len(blob)),
		Checksum: hex.EncodeToString(sum[:]),
	}
	if mv.Artifacts == nil {
		mv.Artifacts = map[string]model.Artifact{}
	}
	mv.Artifacts[artifact] = ref
	m.blobs[blobKey(name, version, artifact)] = blob
	mv.LastUpdated = time.Now().UTC()
	return &ref, nil
}

func blobKey(name string, version int, artifact string) string {
	return fmt.Sprintf("%s/%d/%s", name, version, artifact)
}

var _ Registry = (*Memory)(nil)
