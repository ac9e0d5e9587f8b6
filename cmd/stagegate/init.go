package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/version"
)

var v *viper.Viper

// viperKeyDelimiter separates nested configuration keys. ".." is used instead
// of "." so workspace names containing dots are not split into objects.
const viperKeyDelimiter = ".."

//nolint:gochecknoinit
func init() {
	// The version of rootCmd is set in init() rather than when `rootCmd` is
	// initialized, because link-time variable assignments are not applied when
	// package-scoped variables are initialized.
	rootCmd.Version = version.Version
	registerConfig()
}

type configKey []string

func (c configKey) EnvName() string {
	return "STAGEGATE_" + strings.ReplaceAll(strings.ToUpper(c.FlagName()), "-", "_")
}

func (c configKey) AccessPath() string {
	return strings.ReplaceAll(strings.Join(c, viperKeyDelimiter), "-", "_")
}

func (c configKey) FlagName() string {
	return strings.Join(c, "-")
}

func registerString(flags *pflag.FlagSet, name configKey, value string, usage string) {
	flags.String(name.FlagName(), value, usage)
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerBool(flags *pflag.FlagSet, name configKey, value bool, usage string) {
	flags.Bool(name.FlagName(), value, usage)
	_ = v.BindEnv(name.AccessPath(), name.EnvName())
	_ = v.BindPFlag(name.AccessPath(), flags.Lookup(name.FlagName()))
	v.SetDefault(name.AccessPath(), value)
}

func registerConfig() {
	v = viper.NewWithOptions(viper.KeyDelimiter(viperKeyDelimiter))
	v.SetTypeByDefaultValue(true)

	defaults := config.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	name := func(components ...string) configKey { return components }

	registerString(flags, name("config-file"),
		defaults.ConfigFile, "location of config file")

	registerString(flags, name("log", "level"),
		defaults.Log.Level, "choose logging level from [trace, debug, info, warn, error, fatal]")
	registerBool(flags, name("log", "color"),
		defaults.Log.Color, "output logs in color")

	registerString(flags, name("exchange", "bucket"),
		defaults.Exchange.Bucket, "object storage bucket shared between workspaces")
	registerString(flags, name("exchange", "store"),
		defaults.Exchange.Store, "exchange store backend (gcs, s3, local)")
	registerString(flags, name("exchange", "local-root"),
		defaults.Exchange.LocalRoot, "directory backing the local exchange store")

	registerString(flags, name("slack", "webhook-url"),
		defaults.Slack.WebhookURL, "Slack incoming webhook for governance notifications")

	registerString(flags, name("git-sha"),
		defaults.GitSHA, "git revision snapshots are tagged with")
}
