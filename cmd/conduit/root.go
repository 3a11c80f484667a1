package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/conduit/pkg/config"
	"github.com/platinummonkey/conduit/pkg/observability"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	pluginPaths []string
	ui          string
	version     string
}

func newRootCommand(version, commit, date string) *cobra.Command {
	opts := &rootOptions{version: version}

	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit - messaging plugin host",
		Long: `Conduit discovers, loads and unloads protocol and extension plugins and
drives them from a single control loop.

Native plugins are Go plugins exporting PluginInit; scripts in any other
format are handled by a loader plugin (Lua scripts by the built-in loader).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", os.Getenv("CONDUIT_CONFIG"), "YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.StringSliceVar(&opts.pluginPaths, "plugin-path", nil, "plugin search directory (repeatable, replaces configured paths)")
	flags.StringVar(&opts.ui, "ui", "", "UI requirement plugins are checked against")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newPluginsCommand(opts))
	rootCmd.AddCommand(newProtocolsCommand(opts))

	return rootCmd
}

// load reads the configuration, applies the command line on top and builds
// the logger.
func (o *rootOptions) load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfigFile(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		level, err := logrus.ParseLevel(o.logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.Observability.LogLevel = level
	}
	if o.logFormat != "" {
		cfg.Observability.LogFormat = o.logFormat
	}
	if len(o.pluginPaths) > 0 {
		cfg.Plugins.SearchPaths = o.pluginPaths
	}
	if o.ui != "" {
		cfg.Plugins.UI = o.ui
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	return cfg, log, nil
}
