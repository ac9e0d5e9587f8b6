package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/model"
)

func TestValidateThresholdTable(t *testing.T) {
	cases := []struct {
		name    string
		metrics model.Metrics
		stage   model.Stage
		wantErr string
	}{
		{
			name:    "strong metrics pass production",
			metrics: model.Metrics{"accuracy": 0.85, "precision": 0.82, "recall": 0.88},
			stage:   model.ProductionStage,
		},
		{
			name:    "strong metrics pass staging",
			metrics: model.Metrics{"accuracy": 0.85, "precision": 0.82, "recall": 0.88},
			stage:   model.StagingStage,
		},
		{
			name:    "mid metrics pass staging only",
			metrics: model.Metrics{"accuracy": 0.75, "precision": 0.72, "recall": 0.78},
			stage:   model.StagingStage,
		},
		{
			name:    "mid metrics fail production",
			metrics: model.Metrics{"accuracy": 0.75, "precision": 0.72, "recall": 0.78},
			stage:   model.ProductionStage,
			wantErr: "production promotion requirements",
		},
		{
			name:    "boundary values pass inclusively",
			metrics: model.Metrics{"accuracy": 0.70, "precision": 0.70, "recall": 0.70},
			stage:   model.StagingStage,
		},
		{
			name:    "just below threshold fails naming the metric",
			metrics: model.Metrics{"accuracy": 0.699, "precision": 0.70, "recall": 0.70},
			stage:   model.StagingStage,
			wantErr: "accuracy: 0.699 < 0.700",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.metrics, tc.stage)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateAggregatesAllFailures(t *testing.T) {
	err := Validate(model.Metrics{"accuracy": 0.5, "precision": 0.6, "recall": 0.65}, model.ProductionStage)
	require.Error(t, err)
	require.Contains(t, err.Error(), "accuracy: 0.500 < 0.800")
	require.Contains(t, err.Error(), "precision: 0.600 < 0.800")
	require.Contains(t, err.Error(), "recall: 0.650 < 0.800")
}

func TestValidateMissingMetricsFailBeforeThresholds(t *testing.T) {
	// Missing keys name exactly the missing metrics, even when present ones
	// would pass every threshold.
	err := Validate(model.Metrics{"accuracy": 0.99}, model.ProductionStage)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required metrics")
	require.Contains(t, err.Error(), "precision")
	require.Contains(t, err.Error(), "recall")
	require.NotContains(t, err.Error(), "accuracy:")

	err = Validate(model.Metrics{}, model.StagingStage)
	require.Error(t, err)
	for _, name := range model.RequiredMetrics {
		require.Contains(t, err.Error(), name)
	}
}

func TestValidateNeverDefaultsMissingToZero(t *testing.T) {
	// A present zero fails thresholds; an absent key fails presence. The two
	// must be distinguishable.
	present := Validate(model.Metrics{"accuracy": 0, "precision": 0.8, "recall": 0.8}, model.StagingStage)
	require.Contains(t, present.Error(), "accuracy: 0.000 < 0.700")

	absent := Validate(model.Metrics{"precision": 0.8, "recall": 0.8}, model.StagingStage)
	require.Contains(t, absent.Error(), "missing required metrics")
}

func TestRequirementsMonotonicAcrossStages(t *testing.T) {
	staging := Requirements(model.StagingStage)
	production := Requirements(model.ProductionStage)
	for name, stagingMin := range staging {
		require.LessOrEqual(t, stagingMin, production[name],
			"%s staging threshold must not exceed production", name)
	}
	require.Nil(t, Requirements(model.ArchivedStage))
	require.Nil(t, Requirements(model.LatestStage))
}
