package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/pkg/model"
)

func TestName(t *testing.T) {
	cases := []struct {
		env    Environment
		prefix string
		sha    string
		want   string
	}{
		{Staging, "training", "0123456789abcdef", "STG_training_0123456"},
		{Production, "training", "0123456789abcdef", "PROD_training_0123456"},
		{Staging, "training", "", "STG_training_local"},
		{Production, "batch", "abc", "PROD_batch_abc"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Name(tc.env, tc.prefix, tc.sha))
	}
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment("Staging")
	require.NoError(t, err)
	require.Equal(t, Staging, env)

	_, err = ParseEnvironment("qa")
	require.Error(t, err)
}

type fakeRunner struct {
	runs []string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, snapshotName, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, snapshotName)
	return nil
}

func seedModel(t *testing.T) *registry.Memory {
	t.Helper()
	reg := registry.NewMemory()
	reg.AddVersion(model.ModelVersion{Name: "churn"})
	return reg
}

func TestBuildRegistersRecord(t *testing.T) {
	ctx := context.Background()
	reg := seedModel(t)
	runner := &fakeRunner{}

	record, err := NewBuilder(reg, runner).Build(ctx, Spec{
		Environment: Staging,
		Stack:       "default",
		Pipeline:    "training",
		Model:       "churn",
		GitSHA:      "0123456789abcdef",
		Run:         true,
	})
	require.NoError(t, err)
	require.Equal(t, "STG_training_0123456", record.Name)
	require.True(t, record.Triggered)
	require.Equal(t, []string{"STG_training_0123456"}, runner.runs)

	mv, err := reg.GetModelVersion(ctx, "churn", registry.Latest())
	require.NoError(t, err)
	require.Contains(t, mv.Metadata, "snapshot_STG_training_0123456")
}

func TestBuildProductionNeverRuns(t *testing.T) {
	reg := seedModel(t)
	runner := &fakeRunner{}

	record, err := NewBuilder(reg, runner).Build(context.Background(), Spec{
		Environment: Production,
		Pipeline:    "training",
		Model:       "churn",
		GitSHA:      "0123456789abcdef",
		Run:         true,
	})
	require.NoError(t, err)
	require.False(t, record.Triggered)
	require.Empty(t, runner.runs)
}

func TestBuildWithoutRunnerSkipsRun(t *testing.T) {
	reg := seedModel(t)

	record, err := NewBuilder(reg, nil).Build(context.Background(), Spec{
		Environment: Staging,
		Pipeline:    "training",
		Model:       "churn",
		Run:         true,
	})
	require.NoError(t, err)
	require.False(t, record.Triggered)
	require.Equal(t, "STG_training_local", record.Name)
}

func TestMetadataRunnerRecordsRequest(t *testing.T) {
	ctx := context.Background()
	reg := seedModel(t)

	record, err := NewBuilder(reg, NewMetadataRunner(reg, "churn")).Build(ctx, Spec{
		Environment: Staging,
		Pipeline:    "training",
		Model:       "churn",
		GitSHA:      "0123456789abcdef",
		Run:         true,
	})
	require.NoError(t, err)
	require.True(t, record.Triggered)

	mv, err := reg.GetModelVersion(ctx, "churn", registry.Latest())
	require.NoError(t, err)
	require.Contains(t, mv.Metadata, "run_request_STG_training_0123456")
}

func TestMetadataRunnerUnknownModel(t *testing.T) {
	reg := registry.NewMemory()
	err := NewMetadataRunner(reg, "missing").Run(context.Background(), "STG_training_local", "training")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestBuildNameOverride(t *testing.T) {
	record, err := NewBuilder(seedModel(t), nil).Build(context.Background(), Spec{
		Environment: Staging,
		Pipeline:    "training",
		Model:       "churn",
		Name:        "custom-name",
	})
	require.NoError(t, err)
	require.Equal(t, "custom-name", record.Name)
}

func TestBuildRequiresPipelineAndModel(t *testing.T) {
	b := NewBuilder(seedModel(t), nil)

	_, err := b.Build(context.Background(), Spec{Environment: Staging, Model: "churn"})
	require.Error(t, err)

	_, err = b.Build(context.Background(), Spec{Environment: Staging, Pipeline: "training"})
	require.Error(t, err)
}

func TestBuildUnknownModel(t *testing.T) {
	_, err := NewBuilder(registry.NewMemory(), nil).Build(context.Background(), Spec{
		Environment: Staging,
		Pipeline:    "training",
		Model:       "missing",
	})
	require.ErrorIs(t, err, registry.ErrNotFound)
}
