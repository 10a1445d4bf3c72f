package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/exploopio/vrx-portal/pkg/config"
	"github.com/exploopio/vrx-portal/pkg/core"
)

const appName = "vrx-portal"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

func (o *globalOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "path to the YAML config file")
	fs.StringVar(&o.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

// load reads the configuration and builds the process logger.
func (o *globalOptions) load() (*config.Config, core.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger := core.NewLogrusLogger(appName, core.LoggerOptions{
		Level:  cfg.LogLevel(),
		JSON:   cfg.Log.JSON,
		Output: os.Stderr,
	})
	core.SetDefaultLogger(logger)
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:                   appName + " [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "VRX Portal serves the vulnerability and asset management console.",
		Long: `VRX Portal serves the vulnerability and asset management console: a
dashboard, asset inventory, findings, user management and settings, with a
JSON API under /api/v1.`,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	opts.addFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(opts),
		newRoutesCmd(opts),
		newProbeCmd(),
		newVersionCmd(),
	)
	return root
}
