// Package exchange ships model versions between workspaces through a shared
// object-storage bucket: the exporter serializes a version's artifacts plus a
// JSON manifest, and the importer re-registers them in the destination
// workspace, preserving metrics and extending the audit lineage.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/internal/store"
	"github.com/stagegate/stagegate/pkg/model"
)

// Chain entry actions.
const (
	ActionExported = "exported"
	ActionImported = "imported"
)

// Blob names within an export directory.
const (
	modelBlob    = "model.bin"
	scalerBlob   = "scaler.bin"
	manifestBlob = "manifest.json"
)

// ChainEntry is one hop in the promotion chain. The chain is append-only:
// every export and import adds an entry, none is ever rewritten.
type ChainEntry struct {
	Action    string      `json:"action"`
	Workspace string      `json:"workspace"`
	Stage     model.Stage `json:"stage,omitempty"`
	Version   int         `json:"version,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Artifacts records where the exported blobs live and their checksums.
// Scaler fields are empty when the source version carried no scaler.
type Artifacts struct {
	Model          string `json:"model"`
	ModelChecksum  string `json:"model_checksum"`
	Scaler         string `json:"scaler,omitempty"`
	ScalerChecksum string `json:"scaler_checksum,omitempty"`
}

// Source identifies the exported version in its workspace of origin.
type Source struct {
	Workspace      string      `json:"workspace"`
	ModelVersion   int         `json:"model_version"`
	ModelVersionID string      `json:"model_version_id"`
	Stage          model.Stage `json:"stage"`
	PipelineRunIDs []string    `json:"pipeline_run_ids"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Manifest is the JSON document describing one export. It is written once
// per export; the only mutation it ever sees is chain appends on import.
type Manifest struct {
	ModelName       string        `json:"model_name"`
	ExportTimestamp time.Time     `json:"export_timestamp"`
	ExportPath      string        `json:"export_path"`
	Source          Source        `json:"source"`
	Metrics         model.Metrics `json:"metrics"`
	Artifacts       Artifacts     `json:"artifacts"`
	PromotionChain  []ChainEntry  `json:"promotion_chain"`
}

// AppendChain adds an entry to the promotion chain.
func (m *Manifest) AppendChain(entry ChainEntry) {
	m.PromotionChain = append(m.PromotionChain, entry)
}

// exportKey is the object-store directory of one export.
func exportKey(modelName, workspace string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s/%s", modelName, workspace, at.UTC().Format("2006-01-02T15-04-05"))
}

// manifestKey normalizes an export-directory key to the manifest's key,
// appending the manifest file name when missing. Translating a full store
// URI into a key is the store's job, via Store.Key.
func manifestKey(key string) string {
	key = strings.TrimSuffix(key, "/")
	if !strings.HasSuffix(key, "/"+manifestBlob) {
		key += "/" + manifestBlob
	}
	return key
}

// readManifest downloads and parses a manifest from the store.
func readManifest(ctx context.Context, s store.Store, key string) (*Manifest, error) {
	r, err := s.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching manifest %q", key)
	}
	defer func() { _ = r.Close() }()

	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "decoding manifest %q", key)
	}
	return &m, nil
}

// writeManifest uploads a manifest to the store.
func writeManifest(ctx context.Context, s store.Store, key string, m *Manifest) error {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	return errors.Wrapf(s.Put(ctx, key, strings.NewReader(string(payload))),
		"uploading manifest %q", key)
}
