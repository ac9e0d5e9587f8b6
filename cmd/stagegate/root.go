package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/hooks"
	"github.com/stagegate/stagegate/internal/registry"
	"github.com/stagegate/stagegate/internal/store"
	"github.com/stagegate/stagegate/pkg/check"
)

const defaultConfigPath = "/etc/stagegate/stagegate.yaml"

// conf is populated once before any subcommand runs.
var conf *config.Config

var rootCmd = &cobra.Command{
	Use:           "stagegate",
	Short:         "model promotion and governance toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := initializeConfig()
		if err != nil {
			return err
		}
		conf = c
		return nil
	},
}

// initializeConfig returns the validated configuration populated from config
// file, environment variables, and command line flags, and also initializes
// global logging state based on those options.
func initializeConfig() (*config.Config, error) {
	// Fetch an initial config to get the config file path and read its settings into Viper.
	initialConfig, err := getConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}

	bs, err := readConfigFile(initialConfig.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err = mergeConfigBytesIntoViper(bs); err != nil {
		return nil, err
	}

	// Now call viper.AllSettings() again to get the full config, containing all
	// values from CLI flags, environment variables, and the configuration file.
	c, err := getConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if err := check.Validate(c); err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   c.Log.Color,
	})

	return c, nil
}

func readConfigFile(configPath string) ([]byte, error) {
	isDefault := configPath == ""
	if isDefault {
		configPath = defaultConfigPath
	}

	var err error
	if _, err = os.Stat(configPath); err != nil {
		if isDefault && os.IsNotExist(err) {
			log.Debugf("no configuration file at %s, skipping", configPath)
			return nil, nil
		}
		return nil, errors.Wrap(err, "error finding configuration file")
	}
	bs, err := os.ReadFile(configPath) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration file")
	}
	return bs, nil
}

func mergeConfigBytesIntoViper(bs []byte) error {
	var configMap map[string]interface{}
	if err := yaml.Unmarshal(bs, &configMap); err != nil {
		return errors.Wrap(err, "error unmarshal yaml configuration file")
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return errors.Wrap(err, "error merge configuration to viper")
	}
	return nil
}

func getConfig(configMap map[string]interface{}) (*config.Config, error) {
	c := config.DefaultConfig()
	bs, err := json.Marshal(configMap)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal configuration map into json bytes")
	}
	if err = yaml.Unmarshal(bs, &c); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal configuration")
	}
	return c, nil
}

// newRegistry builds a registry client for the named workspace.
func newRegistry(workspace string) (registry.Registry, error) {
	ws, err := conf.Workspace(workspace)
	if err != nil {
		return nil, err
	}
	return registry.NewClient(ws.URL, ws.APIKey)
}

// newStore builds the exchange object store from the configuration.
func newStore(ctx context.Context, bucketOverride string) (store.Store, error) {
	bucket := conf.Exchange.Bucket
	if bucketOverride != "" {
		bucket = bucketOverride
	}
	switch conf.Exchange.Store {
	case config.StoreGCS:
		if bucket == "" {
			return nil, errors.New("no exchange bucket configured")
		}
		return store.NewGCS(ctx, bucket)
	case config.StoreS3:
		if bucket == "" {
			return nil, errors.New("no exchange bucket configured")
		}
		return store.NewS3(bucket)
	case config.StoreLocal:
		return store.NewLocal(conf.Exchange.LocalRoot)
	default:
		return nil, errors.Errorf("unknown exchange store kind %q", conf.Exchange.Store)
	}
}

// newHooks builds the governance notifier set: the structured log always,
// Slack when a webhook is configured.
func newHooks() *hooks.Hooks {
	notifiers := []hooks.Notifier{hooks.LogNotifier{}}
	if conf.Slack.WebhookURL != "" {
		notifiers = append(notifiers, hooks.NewSlackWebhook(conf.Slack.WebhookURL))
	}
	return hooks.New(notifiers...)
}
