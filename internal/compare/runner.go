package compare

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

// Batch is the on-disk format of a scored inference batch: both models'
// predictions over the same ordered inputs, as written by the serving layer.
type Batch struct {
	Champion   []Prediction `json:"champion"`
	Challenger []Prediction `json:"challenger"`
}

// ReadBatch loads a Batch from a JSON file.
func ReadBatch(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening prediction batch %q", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeBatch(f)
}

// DecodeBatch parses a Batch from JSON.
func DecodeBatch(r io.Reader) (*Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, errors.Wrap(err, "decoding prediction batch")
	}
	return &b, nil
}

// Runner resolves the champion and challenger versions from a registry and
// attaches their identities to comparison reports.
type Runner struct {
	registry registry.Registry
}

// NewRunner returns a Runner over the given registry.
func NewRunner(reg registry.Registry) *Runner {
	return &Runner{registry: reg}
}

// Run compares a batch, labeling the report with the current production
// (champion) and staging (challenger) versions of the model. When record is
// set, the comparison statistics are logged to the champion version's
// metadata for later review; a failure there does not invalidate the report.
func (r *Runner) Run(ctx context.Context, name string, batch *Batch, record bool) (*Report, error) {
	report, err := Compare(batch.Champion, batch.Challenger)
	if err != nil {
		return nil, err
	}

	champion, err := r.registry.GetModelVersion(ctx, name, registry.ByStage(model.ProductionStage))
	if err != nil {
		return nil, errors.Wrapf(err, "resolving champion (production) version of %q", name)
	}
	report.ChampionVersion = strconv.Itoa(champion.Version)

	challenger, err := r.registry.GetModelVersion(ctx, name, registry.ByStage(model.StagingStage))
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			return nil, errors.Wrapf(err, "resolving challenger (staging) version of %q", name)
		}
		log.WithField("model", name).Warn("no staging model found, comparing production against itself")
		report.ChallengerVersion = report.ChampionVersion
	} else {
		report.ChallengerVersion = strconv.Itoa(challenger.Version)
	}

	if record {
		err := r.registry.LogMetadata(ctx, name, champion.Version, model.JSONObj{
			"champion_challenger_comparison": report,
		})
		if err != nil {
			log.WithError(err).Warn("could not record comparison metadata on champion version")
		}
	}
	return report, nil
}
