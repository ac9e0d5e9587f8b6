// Package snapshot builds deployable pipeline snapshots: a named, immutable
// record of a pipeline configuration tied to a git revision, registered as
// model metadata so deployments are reproducible and auditable.
package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

// Environment selects the naming scheme and run policy of a snapshot.
type Environment string

const (
	Staging    Environment = "staging"
	Production Environment = "production"
)

// ParseEnvironment validates a raw environment string.
func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(strings.ToLower(raw)) {
	case Staging:
		return Staging, nil
	case Production:
		return Production, nil
	default:
		return "", errors.Errorf("unknown environment %q, want staging or production", raw)
	}
}

// Name derives the snapshot name: environment tag, pipeline prefix, and the
// short git SHA, or "local" when built outside a checkout.
func Name(env Environment, prefix, gitSHA string) string {
	tag := "STG"
	if env == Production {
		tag = "PROD"
	}
	suffix := "local"
	if gitSHA != "" {
		suffix = gitSHA
		if len(suffix) > 7 {
			suffix = suffix[:7]
		}
	}
	return fmt.Sprintf("%s_%s_%s", tag, prefix, suffix)
}

// Spec describes the snapshot to build.
type Spec struct {
	Environment Environment
	Stack       string
	Pipeline    string
	Model       string
	GitSHA      string

	// Name overrides the derived snapshot name when set.
	Name string

	// Run requests an immediate pipeline run after registration. Ignored
	// for production: production snapshots are deployed, never auto-run.
	Run bool
}

// Record is the registered snapshot.
type Record struct {
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	Stack       string      `json:"stack"`
	Pipeline    string      `json:"pipeline"`
	GitSHA      string      `json:"git_sha"`
	CreatedAt   time.Time   `json:"created_at"`
	Triggered   bool        `json:"triggered"`
}

// Runner triggers a pipeline run from a snapshot.
type Runner interface {
	Run(ctx context.Context, snapshotName, pipeline string) error
}

// MetadataRunner requests a pipeline run by recording a run-request marker on
// the model's latest version. The orchestrator owning the pipeline watches
// for these markers and starts the run; stagegate itself never executes
// pipelines.
type MetadataRunner struct {
	registry registry.Registry
	model    string
}

// NewMetadataRunner builds a MetadataRunner recording run requests on the
// named model.
func NewMetadataRunner(r registry.Registry, modelName string) *MetadataRunner {
	return &MetadataRunner{registry: r, model: modelName}
}

// Run implements Runner.
func (m *MetadataRunner) Run(ctx context.Context, snapshotName, pipeline string) error {
	mv, err := m.registry.GetModelVersion(ctx, m.model, registry.Latest())
	if err != nil {
		return errors.Wrapf(err, "resolving latest version of model %q", m.model)
	}
	request := map[string]interface{}{
		"snapshot":     snapshotName,
		"pipeline":     pipeline,
		"requested_at": time.Now().UTC(),
	}
	return errors.Wrapf(
		m.registry.LogMetadata(ctx, mv.Name, mv.Version, model.JSONObj{
			"run_request_" + snapshotName: request,
		}),
		"recording run request for snapshot %q", snapshotName)
}

var _ Runner = (*MetadataRunner)(nil)

// Builder registers snapshots against a model's latest version.
type Builder struct {
	registry registry.Registry
	runner   Runner
}

// NewBuilder builds a Builder. runner may be nil when run triggering is not
// available.
func NewBuilder(r registry.Registry, runner Runner) *Builder {
	return &Builder{registry: r, runner: runner}
}

// Build registers the snapshot record on the model's latest version and, for
// staging snapshots with Run set, triggers a pipeline run.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Record, error) {
	if spec.Pipeline == "" {
		return nil, errors.New("snapshot requires a pipeline name")
	}
	if spec.Model == "" {
		return nil, errors.New("snapshot requires a model name")
	}

	name := spec.Name
	if name == "" {
		name = Name(spec.Environment, spec.Pipeline, spec.GitSHA)
	}
	record := &Record{
		Name:        name,
		Environment: spec.Environment,
		Stack:       spec.Stack,
		Pipeline:    spec.Pipeline,
		GitSHA:      spec.GitSHA,
		CreatedAt:   time.Now().UTC(),
	}

	mv, err := b.registry.GetModelVersion(ctx, spec.Model, registry.Latest())
	if err != nil {
		return nil, errors.Wrapf(err, "resolving latest version of model %q", spec.Model)
	}
	if err := b.registry.LogMetadata(ctx, mv.Name, mv.Version, model.JSONObj{
		"snapshot_" + record.Name: record,
	}); err != nil {
		return nil, errors.Wrapf(err, "registering snapshot %q", record.Name)
	}

	if spec.Run {
		switch {
		case spec.Environment == Production:
			log.WithField("snapshot", record.Name).
				Warn("production snapshots are never run automatically, skipping run")
		case b.runner == nil:
			log.WithField("snapshot", record.Name).
				Warn("no pipeline runner configured, skipping run")
		default:
			if err := b.runner.Run(ctx, record.Name, spec.Pipeline); err != nil {
				return nil, errors.Wrapf(err, "running snapshot %q", record.Name)
			}
			record.Triggered = true
		}
	}

	log.WithFields(log.Fields{
		"snapshot":    record.Name,
		"environment": record.Environment,
		"model":       spec.Model,
		"triggered":   record.Triggered,
	}).Info("built pipeline snapshot")
	return record, nil
}
