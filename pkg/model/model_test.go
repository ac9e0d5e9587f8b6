package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	for _, s := range Stages {
		parsed, err := ParseStage(string(s))
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := ParseStage("shipping")
	require.Error(t, err)
}

func TestStageExclusive(t *testing.T) {
	require.True(t, StagingStage.Exclusive())
	require.True(t, ProductionStage.Exclusive())
	require.False(t, LatestStage.Exclusive())
	require.False(t, ArchivedStage.Exclusive())
}

func TestMetricsMissing(t *testing.T) {
	m := Metrics{MetricAccuracy: 0.9, MetricRecall: 0}
	require.Equal(t, []string{MetricPrecision}, m.Missing(RequiredMetrics))

	// A metric logged as zero is present, not missing.
	require.NotContains(t, m.Missing(RequiredMetrics), MetricRecall)

	require.Nil(t, Metrics{MetricAccuracy: 1, MetricPrecision: 1, MetricRecall: 1}.
		Missing(RequiredMetrics))
}

func TestMetricsClone(t *testing.T) {
	m := Metrics{MetricAccuracy: 0.9}
	c := m.Clone()
	c[MetricAccuracy] = 0.1
	require.Equal(t, 0.9, m[MetricAccuracy])

	require.Nil(t, Metrics(nil).Clone())
}

func TestMetricsNamesSorted(t *testing.T) {
	m := Metrics{"recall": 1, "accuracy": 1, "precision": 1}
	require.Equal(t, []string{"accuracy", "precision", "recall"}, m.Names())
}
