package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/priyxstudio/examination/config"
)

var configureArgs struct {
	Host   string
	Port   int
	Driver string
	Data   string
	Force  bool
}

func newConfigureCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "configure",
		Short: "Writes a configuration file with default values to the --config location.",
		Run:   configureCmdRun,
	}

	command.Flags().StringVar(&configureArgs.Host, "host", "", "the interface the API should bind to")
	command.Flags().IntVar(&configureArgs.Port, "port", 0, "the port the API should listen on")
	command.Flags().StringVar(&configureArgs.Driver, "driver", "", "the document store to use (sqlite, bolt or memory)")
	command.Flags().StringVar(&configureArgs.Data, "data", "", "the directory uploaded module files are stored in")
	command.Flags().BoolVar(&configureArgs.Force, "force", false, "overwrite an existing configuration file")

	return command
}

func configureCmdRun(*cobra.Command, []string) {
	p, err := filepath.Abs(configPath)
	if err != nil {
		fatal(err, "cmd/configure: failed to resolve configuration path")
	}
	if _, err := os.Stat(p); err == nil && !configureArgs.Force {
		fmt.Printf("A configuration file already exists at %s, pass --force to overwrite it.\n", p)
		os.Exit(1)
	}

	c, err := config.NewAtPath(p)
	if err != nil {
		fatal(err, "cmd/configure: failed to create configuration")
	}
	if configureArgs.Host != "" {
		c.Api.Host = configureArgs.Host
	}
	if configureArgs.Port != 0 {
		c.Api.Port = configureArgs.Port
	}
	if configureArgs.Driver != "" {
		c.Database.Driver = configureArgs.Driver
	}
	if configureArgs.Data != "" {
		c.System.Data = configureArgs.Data
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		fatal(err, "cmd/configure: failed to create configuration directory")
	}
	if err := config.WriteToDisk(c); err != nil {
		fatal(err, "cmd/configure: failed to write configuration")
	}
	// Read it back so a bad flag value is reported now instead of on start.
	if err := config.FromFile(p); err != nil {
		fatal(err, "cmd/configure: the written configuration is invalid")
	}
	fmt.Printf("Successfully wrote configuration to %s\n", p)
}
