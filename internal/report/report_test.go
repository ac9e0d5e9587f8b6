package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/model"
)

func TestDataQualityCheckPasses(t *testing.T) {
	q := DataQuality{Rows: 500, Columns: 10, MissingCells: 100}
	require.NoError(t, q.Check())
}

func TestDataQualityTooFewRows(t *testing.T) {
	q := DataQuality{Rows: 99, Columns: 10}
	err := q.Check()
	require.Error(t, err)
	require.Contains(t, err.Error(), "99 rows")
}

func TestDataQualityTooManyMissing(t *testing.T) {
	q := DataQuality{Rows: 1000, Columns: 10, MissingCells: 1500}
	err := q.Check()
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestDataQualityAggregatesFailures(t *testing.T) {
	q := DataQuality{Rows: 10, Columns: 10, MissingCells: 50}
	err := q.Check()
	require.Error(t, err)
	require.Contains(t, err.Error(), "rows")
	require.Contains(t, err.Error(), "missing")
}

func TestDataQualityDuplicatesOnlyWarn(t *testing.T) {
	q := DataQuality{Rows: 500, Columns: 10, DuplicateRows: 3}
	require.NoError(t, q.Check())
}

func TestDataQualityEmptyDataset(t *testing.T) {
	q := DataQuality{}
	require.Zero(t, q.MissingFraction())
	require.Error(t, q.Check())
}

func TestTrainingReportPass(t *testing.T) {
	metrics := model.Metrics{"accuracy": 0.85, "precision": 0.82, "recall": 0.88}
	quality := DataQuality{Rows: 500, Columns: 10}

	out := Training(metrics, quality, model.ProductionStage)
	require.Contains(t, out, "# Training Report")
	require.Contains(t, out, "| accuracy | 0.850 | >= 0.80 | PASS |")
	require.Contains(t, out, "Model is ready for production.")
	require.NotContains(t, out, "FAIL")
}

func TestTrainingReportFailingMetric(t *testing.T) {
	metrics := model.Metrics{"accuracy": 0.75, "precision": 0.82, "recall": 0.88}
	quality := DataQuality{Rows: 500, Columns: 10}

	out := Training(metrics, quality, model.ProductionStage)
	require.Contains(t, out, "| accuracy | 0.750 | >= 0.80 | FAIL |")
	require.Contains(t, out, "Model is NOT ready for production.")
}

func TestTrainingReportMissingMetric(t *testing.T) {
	metrics := model.Metrics{"accuracy": 0.85}
	quality := DataQuality{Rows: 500, Columns: 10}

	out := Training(metrics, quality, model.StagingStage)
	require.Contains(t, out, "| precision | missing | >= 0.70 | FAIL |")
	require.Contains(t, out, "NOT ready")
}

func TestTrainingReportDuplicateWarn(t *testing.T) {
	metrics := model.Metrics{"accuracy": 0.85, "precision": 0.82, "recall": 0.88}
	quality := DataQuality{Rows: 500, Columns: 10, DuplicateRows: 2}

	out := Training(metrics, quality, model.StagingStage)
	require.Contains(t, out, "| Duplicate rows | 2 | 0 | WARN |")
	require.True(t, strings.Contains(out, "Model is ready for staging."))
}
