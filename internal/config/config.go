// Package config holds the stagegate configuration: the workspaces the tool
// can reach, the exchange bucket shared between them, and ambient options
// like logging. Workspace credentials are always explicit config objects,
// never ambient globals.
package config

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/stagegate/stagegate/pkg/check"
)

// Object store kinds for the exchange bucket.
const (
	StoreGCS   = "gcs"
	StoreS3    = "s3"
	StoreLocal = "local"
)

// Config is the root stagegate configuration.
type Config struct {
	ConfigFile string                     `json:"config_file"`
	Log        LogConfig                  `json:"log"`
	Workspaces map[string]WorkspaceConfig `json:"workspaces"`
	Exchange   ExchangeConfig             `json:"exchange"`
	Slack      SlackConfig                `json:"slack"`
	GitSHA     string                     `json:"git_sha"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level string `json:"level"`
	Color bool   `json:"color"`
}

// WorkspaceConfig addresses one workspace's model registry.
type WorkspaceConfig struct {
	URL     string `json:"url"`
	APIKey  string `json:"api_key"`
	Project string `json:"project"`
}

// ExchangeConfig describes the object store used for cross-workspace
// transfers.
type ExchangeConfig struct {
	Bucket string `json:"bucket"`
	Store  string `json:"store"`

	// LocalRoot is the directory backing the local store kind.
	LocalRoot string `json:"local_root"`
}

// SlackConfig configures the governance webhook. An empty URL disables it.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Workspaces: map[string]WorkspaceConfig{},
		Exchange: ExchangeConfig{
			Store: StoreGCS,
		},
	}
}

// Workspace resolves a workspace by name.
func (c *Config) Workspace(name string) (WorkspaceConfig, error) {
	ws, ok := c.Workspaces[name]
	if !ok {
		return WorkspaceConfig{}, errors.Errorf("workspace %q is not configured", name)
	}
	return ws, nil
}

// Printable returns the configuration as JSON with secrets redacted.
func (c Config) Printable() ([]byte, error) {
	redacted := make(map[string]WorkspaceConfig, len(c.Workspaces))
	for name, ws := range c.Workspaces {
		if ws.APIKey != "" {
			ws.APIKey = "********"
		}
		redacted[name] = ws
	}
	c.Workspaces = redacted
	out, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "unable to convert config to JSON")
	}
	return out, nil
}

// Validate implements the check.Validatable interface.
func (e ExchangeConfig) Validate() []error {
	errs := []error{
		check.In(e.Store, []string{StoreGCS, StoreS3, StoreLocal},
			"exchange store must be gcs, s3, or local"),
	}
	if e.Store == StoreLocal {
		errs = append(errs, check.NotEmpty(e.LocalRoot, "local exchange store requires a root directory"))
	}
	return errs
}

// Validate implements the check.Validatable interface.
func (l LogConfig) Validate() []error {
	return []error{
		check.In(l.Level, []string{"trace", "debug", "info", "warn", "error", "fatal"},
			"invalid log level"),
	}
}

// Validate implements the check.Validatable interface.
func (w WorkspaceConfig) Validate() []error {
	return []error{
		check.NotEmpty(w.URL, "workspace url must be set"),
	}
}
