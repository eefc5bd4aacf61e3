package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/spf13/cobra"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/internal/diagnostics"
	"github.com/priyxstudio/examination/system"
)

var (
	configPath = config.DefaultLocation
	debug      = false
)

var rootCommand = &cobra.Command{
	Use:   "examination",
	Short: "Runs the API server for academic modules, results and re-correction requests.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Prints the current executable version and exits.",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("examination v%s\n", system.Version)
	},
}

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		log.WithField("error", err).Fatal("failed to execute command")
	}
}

func init() {
	rootCommand.PersistentFlags().StringVar(&configPath, "config", config.DefaultLocation, "set the location for the configuration file")
	rootCommand.PersistentFlags().BoolVar(&debug, "debug", false, "pass in order to run in debug mode")

	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(newServeCommand())
	rootCommand.AddCommand(newConfigureCommand())
	rootCommand.AddCommand(newDiagnosticsCommand())
}

// Reads the configuration from the disk and then sets up the global singleton
// with all the configuration values.
func initConfig() {
	if !filepath.IsAbs(configPath) {
		d, err := filepath.Abs(configPath)
		if err != nil {
			fatal(err, "cmd/root: failed to get path to config file")
		}
		configPath = d
	}
	err := config.FromFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			exitWithConfigurationNotice()
		}
		fatal(err, "cmd/root: error while reading configuration file")
	}
	if debug && !config.Get().Debug {
		config.SetDebugViaFlag(debug)
	}
}

// Configures the global logger so that we can call it from any location in the
// code without having to pass around a logger instance. Entries go to the
// console and, as JSON, to a log file that is reopened on SIGHUP so that
// logrotate can move it away.
func initLogging() error {
	dir := config.Get().System.LogDirectory
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "cmd/root: failed to create log directory")
	}
	p := filepath.Join(dir, diagnostics.LogFile)
	w, err := logrotate.NewFile(p)
	if err != nil {
		return errors.Wrap(err, "cmd/root: failed to open log file")
	}
	level := log.InfoLevel
	if config.Get().Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetHandler(multi.New(cli.Default, json.New(w)))
	log.WithField("path", p).Info("writing log files to disk")
	return nil
}

// fatal prints err to stderr and exits. It is used before logging has
// been configured.
func fatal(err error, msg string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
	os.Exit(1)
}

// Prints a notice when the configuration file cannot be found and exits.
func exitWithConfigurationNotice() {
	fmt.Printf(`
No configuration file was found at %s.

Run "examination configure --config %s" to write one with the default
values, then edit it to match this machine.

`, configPath, configPath)
	os.Exit(1)
}
