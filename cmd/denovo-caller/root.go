package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the denovo-caller command tree: a single "run"
// command carrying every flag from spec.md §6's flag table (the "caller
// mode" is a --caller flag rather than a cobra subcommand, since the
// spec's flags are flat), plus a "config" subcommand for the optional
// ~/.denovo-caller.yaml file. Unlike the teacher's cmd/vibe-vep/config.go,
// which cobra/viper builds but main.go's flag-based dispatch never calls,
// this tree wires both the config subcommand and the run command for
// real.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "denovo-caller",
		Short: "De novo trio SNV caller",
		Long:  "Identifies de novo SNVs in a parent-parent-child trio by combining a streaming Mendelian filter with a read-based Bayesian refiner.",
	}

	cobra.OnInitialize(initConfig)
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// initConfig loads ~/.denovo-caller.yaml if present. Flag values set on
// the command line always win; viper only fills in flags the user did not
// set on the command line, via newRunCmd's BindPFlag wiring.
func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".denovo-caller.yaml"))
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: could not read config file: %v\n", err)
		}
	}
}
