package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/pkg/model"
)

// DefaultRequestTimeout bounds every registry call. Calls are a single
// attempt; a failed call surfaces to the caller unmodified, with no retry.
const DefaultRequestTimeout = 30 * time.Second

// Client is an HTTP Registry implementation talking to a remote workspace.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// NewClient returns a Registry client for the workspace at rawURL,
// authenticating with apiKey.
func NewClient(rawURL, apiKey string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid registry URL %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid registry URL %q: scheme and host are required", rawURL)
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultRequestTimeout},
	}, nil
}

func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, append([]string{"api", "v1"}, segments...)...)
	return u.String()
}

func (c *Client) do(
	ctx context.Context, method, endpoint string, body io.Reader, contentType string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "building registry request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, endpoint)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		defer closeBody(resp)
		return nil, errors.Wrapf(ErrNotFound, "%s %s", method, endpoint)
	case resp.StatusCode == http.StatusConflict:
		defer closeBody(resp)
		return nil, errors.Wrapf(ErrStageOccupied, "%s %s", method, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		defer closeBody(resp)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("%s %s: registry returned %s: %s",
			method, endpoint, resp.Status, bytes.TrimSpace(msg))
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return err
	}
	defer closeBody(resp)
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s", endpoint)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding registry request")
	}
	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s", endpoint)
}

func refSegment(ref VersionRef) string {
	if ref.Number > 0 {
		return strconv.Itoa(ref.Number)
	}
	if ref.Stage == "" {
		return string(model.LatestStage)
	}
	return string(ref.Stage)
}

// GetModelVersion implements Registry.
func (c *Client) GetModelVersion(
	ctx context.Context, name string, ref VersionRef,
) (*model.ModelVersion, error) {
	var mv model.ModelVersion
	err := c.getJSON(ctx, c.endpoint("models", name, "versions", refSegment(ref)), &mv)
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

// ListModelVersions implements Registry.
func (c *Client) ListModelVersions(
	ctx context.Context, name string,
) ([]*model.ModelVersion, error) {
	var versions []*model.ModelVersion
	err := c.getJSON(ctx, c.endpoint("models", name, "versions"), &versions)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// CreateModelVersion implements Registry.
func (c *Client) CreateModelVersion(
	ctx context.Context, name string, seed VersionSeed,
) (*model.ModelVersion, error) {
	var mv model.ModelVersion
	err := c.postJSON(ctx, c.endpoint("models", name, "versions"), seed, &mv)
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

type setStageRequest struct {
	Stage model.Stage `json:"stage"`
	Force bool        `json:"force"`
}

// SetStage implements Registry.
func (c *Client) SetStage(
	ctx context.Context, name string, version int, stage model.Stage, force bool,
) error {
	endpoint := c.endpoint("models", name, "versions", strconv.Itoa(version), "stage")
	return c.postJSON(ctx, endpoint, setStageRequest{Stage: stage, Force: force}, nil)
}

// LogMetadata implements Registry.
func (c *Client) LogMetadata(
	ctx context.Context, name string, version int, metadata model.JSONObj,
) error {
	endpoint := c.endpoint("models", name, "versions", strconv.Itoa(version), "metadata")
	return c.postJSON(ctx, endpoint, metadata, nil)
}

// GetArtifact implements Registry.
func (c *Client) GetArtifact(
	ctx context.Context, name string, version int, artifact string,
) (io.ReadCloser, *model.Artifact, error) {
	endpoint := c.endpoint("models", name, "versions", strconv.Itoa(version), "artifacts", artifact)
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, nil, err
	}
	var ref model.Artifact
	if encoded := resp.Header.Get("X-Artifact-Ref"); encoded != "" {
		if err := json.Unmarshal([]byte(encoded), &ref); err != nil {
			closeBody(resp)
			return nil, nil, errors.Wrap(err, "decoding artifact reference header")
		}
	} else {
		ref = model.Artifact{Name: artifact, Size: resp.ContentLength}
	}
	return resp.Body, &ref, nil
}

// PutArtifact implements Registry.
func (c *Client) PutArtifact(
	ctx context.Context, name string, version int, artifact string, r io.Reader,
) (*model.Artifact, error) {
	endpoint := c.endpoint("models", name, "versions", strconv.Itoa(version), "artifacts", artifact)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, r)
	if err != nil {
		return nil, errors.Wrap(err, "building artifact upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "PUT %s", endpoint)
	}
	defer closeBody(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrNotFound, "PUT %s", endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("PUT %s: registry returned %s: %s",
			endpoint, resp.Status, bytes.TrimSpace(msg))
	}
	var ref model.Artifact
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, errors.Wrap(err, "decoding artifact reference")
	}
	return &ref, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

var _ Registry = (*Client)(nil)

// String describes the client target, for logs.
func (c *Client) String() string {
	return fmt.Sprintf("registry(%s)", c.baseURL)
}
