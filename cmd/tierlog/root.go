package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crimson-sun/tierlog/internal/config"
	"github.com/crimson-sun/tierlog/internal/logging"
)

// app carries the configuration shared by all subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "tierlog",
		Short:         "Log hierarchical ML sessions as structured analytics events",
		Long:          "tierlog declares session events from a level manifest and replays recorded sessions through them, emitting one structured event per session.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./tierlog.yaml or ./tierlog.toml)")
	flags.String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	flags.String("output", "stdout", "event output: stdout, file, both or webhook")
	flags.String("output-path", "", "event file path for file output")
	flags.String("verbosity", "standard", "event verbosity: minimal, standard, full")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("output.format", flags.Lookup("output"))
	_ = a.v.BindPFlag("output.path", flags.Lookup("output-path"))
	_ = a.v.BindPFlag("output.verbosity", flags.Lookup("verbosity"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newDescribeCmd(a),
		newReplayCmd(a),
	)
	return rootCmd
}

// load reads and validates the configuration, then sets up diagnostics.
// Diagnostics are JSON when events go to stdout, as with the NDJSON stream.
func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	logging.Init(cfg.Log.JSON || cfg.Output.Format != "file", logging.ParseLevel(cfg.Log.Level))
	return nil
}

// manifestPath prefers the --manifest flag over scheme.manifest.
func (a *app) manifestPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Scheme.Manifest
}
