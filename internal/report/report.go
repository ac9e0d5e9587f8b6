// Package report renders training and data-quality governance reports.
package report

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagegate/stagegate/internal/gate"
	"github.com/stagegate/stagegate/pkg/model"
)

// Data-quality limits.
const (
	MinRows            = 100
	MaxMissingFraction = 0.10
)

// DataQuality summarizes the dataset a model was trained on.
type DataQuality struct {
	Rows          int `json:"rows"`
	Columns       int `json:"columns"`
	MissingCells  int `json:"missing_cells"`
	DuplicateRows int `json:"duplicate_rows"`
}

// MissingFraction is the share of cells with no value.
func (q DataQuality) MissingFraction() float64 {
	total := q.Rows * q.Columns
	if total == 0 {
		return 0
	}
	return float64(q.MissingCells) / float64(total)
}

// Check validates the dataset against the quality limits. Duplicate rows
// only warn; too few rows or too many missing cells fail.
func (q DataQuality) Check() error {
	var result *multierror.Error
	if q.Rows < MinRows {
		result = multierror.Append(result,
			errors.Errorf("dataset has %d rows, need at least %d", q.Rows, MinRows))
	}
	if frac := q.MissingFraction(); frac > MaxMissingFraction {
		result = multierror.Append(result,
			errors.Errorf("dataset is %.1f%% missing, limit is %.0f%%",
				frac*100, MaxMissingFraction*100))
	}
	if q.DuplicateRows > 0 {
		log.WithField("duplicates", q.DuplicateRows).Warn("dataset contains duplicate rows")
	}
	return result.ErrorOrNil()
}

// Training renders a markdown training report: the data-quality checks, the
// model's metrics against the promotion gate for the stage, and a verdict.
func Training(metrics model.Metrics, quality DataQuality, stage model.Stage) string {
	var b strings.Builder
	b.WriteString("# Training Report\n\n")

	b.WriteString("## Data Quality\n\n")
	b.WriteString("| Check | Value | Limit | Result |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	fmt.Fprintf(&b, "| Rows | %d | >= %d | %s |\n",
		quality.Rows, MinRows, verdict(quality.Rows >= MinRows))
	fmt.Fprintf(&b, "| Missing cells | %.1f%% | <= %.0f%% | %s |\n",
		quality.MissingFraction()*100, MaxMissingFraction*100,
		verdict(quality.MissingFraction() <= MaxMissingFraction))
	fmt.Fprintf(&b, "| Duplicate rows | %d | 0 | %s |\n",
		quality.DuplicateRows, warnVerdict(quality.DuplicateRows == 0))

	fmt.Fprintf(&b, "\n## Metrics vs %s Gate\n\n", stage)
	b.WriteString("| Metric | Value | Required | Result |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	required := gate.Requirements(stage)
	for _, name := range model.RequiredMetrics {
		threshold := required[name]
		value, ok := metrics[name]
		if !ok {
			fmt.Fprintf(&b, "| %s | missing | >= %.2f | FAIL |\n", name, threshold)
			continue
		}
		fmt.Fprintf(&b, "| %s | %.3f | >= %.2f | %s |\n",
			name, value, threshold, verdict(value >= threshold))
	}

	b.WriteString("\n## Verdict\n\n")
	pass := quality.Check() == nil && gate.Validate(metrics, stage) == nil
	if pass {
		fmt.Fprintf(&b, "Model is ready for %s.\n", stage)
	} else {
		fmt.Fprintf(&b, "Model is NOT ready for %s.\n", stage)
	}
	return b.String()
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func warnVerdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "WARN"
}
