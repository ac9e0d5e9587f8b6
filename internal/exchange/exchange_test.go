package exchange

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/internal/store"
	"github.com/stagegate/stagegate/pkg/model"
)

func localStore(t *testing.T) *store.Local {
	t.Helper()
	s, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)
	return s
}

func seedSource(t *testing.T, metrics model.Metrics, withScaler bool) *registry.Memory {
	t.Helper()
	ctx := context.Background()
	reg := registry.NewMemory()
	reg.AddVersion(model.ModelVersion{
		Name:           "churn",
		Stage:          model.StagingStage,
		Metrics:        metrics,
		PipelineRunIDs: []string{"run-42"},
	})
	_, err := reg.PutArtifact(ctx, "churn", 1, model.ClassifierArtifact,
		strings.NewReader("classifier-bytes"))
	require.NoError(t, err)
	if withScaler {
		_, err = reg.PutArtifact(ctx, "churn", 1, model.ScalerArtifact,
			strings.NewReader("scaler-bytes"))
		require.NoError(t, err)
	}
	return reg
}

// manifestKeyOf finds the single exported manifest's key in the store.
func manifestKeyOf(t *testing.T, s store.Store) string {
	t.Helper()
	keys, err := s.List(context.Background(), "exports/")
	require.NoError(t, err)
	for _, k := range keys {
		if strings.HasSuffix(k, "/manifest.json") {
			return k
		}
	}
	t.Fatal("no manifest found in store")
	return ""
}

func TestExportWritesManifestAndBlobs(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	reg := seedSource(t, model.Metrics{"accuracy": 0.9, "precision": 0.9, "recall": 0.9}, true)

	manifest, err := NewExporter(reg, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)
	require.Equal(t, "churn", manifest.ModelName)
	require.Equal(t, "dev", manifest.Source.Workspace)
	require.Equal(t, 1, manifest.Source.ModelVersion)
	require.Equal(t, model.StagingStage, manifest.Source.Stage)
	require.Equal(t, []string{"run-42"}, manifest.Source.PipelineRunIDs)
	require.NotEmpty(t, manifest.Artifacts.Model)
	require.NotEmpty(t, manifest.Artifacts.ModelChecksum)
	require.NotEmpty(t, manifest.Artifacts.Scaler)
	require.Len(t, manifest.PromotionChain, 1)
	require.Equal(t, ActionExported, manifest.PromotionChain[0].Action)

	key := manifestKeyOf(t, s)
	stored, err := readManifest(ctx, s, key)
	require.NoError(t, err)
	require.Equal(t, manifest.Artifacts, stored.Artifacts)

	r, err := s.Get(ctx, strings.TrimSuffix(key, "/manifest.json")+"/model.bin")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	payload, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "classifier-bytes", string(payload))
}

func TestExportWithoutScalerOmitsIt(t *testing.T) {
	s := localStore(t)
	reg := seedSource(t, model.Metrics{"accuracy": 0.9, "precision": 0.9, "recall": 0.9}, false)

	manifest, err := NewExporter(reg, s, "dev").Export(context.Background(), "churn", model.StagingStage)
	require.NoError(t, err)
	require.Empty(t, manifest.Artifacts.Scaler)
	require.Empty(t, manifest.Artifacts.ScalerChecksum)
}

func TestExportUnknownStageFails(t *testing.T) {
	s := localStore(t)
	reg := seedSource(t, model.Metrics{"accuracy": 0.9}, false)

	_, err := NewExporter(reg, s, "dev").Export(context.Background(), "churn", model.ProductionStage)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	metrics := model.Metrics{"accuracy": 0.91, "precision": 0.88, "recall": 0.93}
	source := seedSource(t, metrics, true)

	manifest, err := NewExporter(source, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)

	// Import by the manifest's own ExportPath URI, the way the combined
	// export-then-import flow hands it over.
	dest := registry.NewMemory()
	mv, imported, err := NewImporter(dest, s, "prod").Import(ctx, manifest.ExportPath, ImportOptions{
		Stage: model.ProductionStage,
	})
	require.NoError(t, err)

	require.Equal(t, metrics, mv.Metrics)
	require.Equal(t, model.ProductionStage, mv.Stage)
	require.Len(t, imported.PromotionChain, 2)
	require.Equal(t, ActionExported, imported.PromotionChain[0].Action)
	require.Equal(t, ActionImported, imported.PromotionChain[1].Action)
	require.Equal(t, "prod", imported.PromotionChain[1].Workspace)

	got, err := dest.GetModelVersion(ctx, "churn", registry.ByStage(model.ProductionStage))
	require.NoError(t, err)
	require.Equal(t, mv.Version, got.Version)
	require.Equal(t, "dev", got.Metadata["imported_from"])

	r, _, err := dest.GetArtifact(ctx, "churn", mv.Version, model.ClassifierArtifact)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	payload, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "classifier-bytes", string(payload))

	_, _, err = dest.GetArtifact(ctx, "churn", mv.Version, model.ScalerArtifact)
	require.NoError(t, err)
}

func TestImportForceDemotesOccupant(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	metrics := model.Metrics{"accuracy": 0.91, "precision": 0.88, "recall": 0.93}
	source := seedSource(t, metrics, false)

	manifest, err := NewExporter(source, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)

	dest := registry.NewMemory()
	occupant := dest.AddVersion(model.ModelVersion{Name: "churn", Stage: model.ProductionStage})

	mv, _, err := NewImporter(dest, s, "prod").Import(ctx, manifest.ExportPath, ImportOptions{
		Stage: model.ProductionStage,
	})
	require.NoError(t, err)

	demoted, err := dest.GetModelVersion(ctx, "churn", registry.ByNumber(occupant.Version))
	require.NoError(t, err)
	require.Equal(t, model.ArchivedStage, demoted.Stage)

	current, err := dest.GetModelVersion(ctx, "churn", registry.ByStage(model.ProductionStage))
	require.NoError(t, err)
	require.Equal(t, mv.Version, current.Version)
}

func TestImportRejectedByGate(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	weak := model.Metrics{"accuracy": 0.75, "precision": 0.72, "recall": 0.78}
	source := seedSource(t, weak, false)

	manifest, err := NewExporter(source, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)

	dest := registry.NewMemory()
	importer := NewImporter(dest, s, "prod")

	_, _, err = importer.Import(ctx, manifest.ExportPath, ImportOptions{Stage: model.ProductionStage})
	require.Error(t, err)
	require.Contains(t, err.Error(), "production gate")

	_, err = dest.ListModelVersions(ctx, "churn")
	require.ErrorIs(t, err, registry.ErrNotFound)

	mv, _, err := importer.Import(ctx, manifest.ExportPath, ImportOptions{
		Stage:          model.ProductionStage,
		SkipValidation: true,
	})
	require.NoError(t, err)
	require.Equal(t, model.ProductionStage, mv.Stage)
}

func TestImportChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	metrics := model.Metrics{"accuracy": 0.91, "precision": 0.88, "recall": 0.93}
	source := seedSource(t, metrics, false)

	manifest, err := NewExporter(source, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)

	dir := strings.TrimSuffix(manifestKeyOf(t, s), "/manifest.json")
	require.NoError(t, s.Put(ctx, dir+"/model.bin", bytes.NewReader([]byte("tampered"))))

	dest := registry.NewMemory()
	_, _, err = NewImporter(dest, s, "prod").Import(ctx, manifest.ExportPath, ImportOptions{
		Stage: model.StagingStage,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")

	_, err = dest.ListModelVersions(ctx, "churn")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestManifestKeyNormalization(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"exports/churn/dev/2026-01-02T03-04-05", "exports/churn/dev/2026-01-02T03-04-05/manifest.json"},
		{"exports/churn/dev/x/", "exports/churn/dev/x/manifest.json"},
		{"exports/churn/dev/x/manifest.json", "exports/churn/dev/x/manifest.json"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, manifestKey(tc.in), "input %q", tc.in)
	}
}

func TestImportByBareDirectoryKey(t *testing.T) {
	ctx := context.Background()
	s := localStore(t)
	metrics := model.Metrics{"accuracy": 0.91, "precision": 0.88, "recall": 0.93}
	source := seedSource(t, metrics, false)

	_, err := NewExporter(source, s, "dev").Export(ctx, "churn", model.StagingStage)
	require.NoError(t, err)

	dir := strings.TrimSuffix(manifestKeyOf(t, s), "/manifest.json")
	dest := registry.NewMemory()
	mv, _, err := NewImporter(dest, s, "prod").Import(ctx, dir, ImportOptions{
		Stage: model.StagingStage,
	})
	require.NoError(t, err)
	require.Equal(t, metrics, mv.Metrics)
}
