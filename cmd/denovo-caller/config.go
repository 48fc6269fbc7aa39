package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKind is the value type a run.go flag expects, so config set/get can
// validate and coerce instead of accepting arbitrary strings.
type configKind int

const (
	kindString configKind = iota
	kindFloat
	kindInt
)

// configurableKeys mirrors exactly the keys newRunCmd binds to viper in
// run.go's BindPFlag loop: config set/get only ever reaches those flags
// through viper, so this file validates against that same set rather than
// letting an operator silently typo a key that run.go will never read.
var configurableKeys = map[string]configKind{
	"caller":              kindString,
	"inference_method":    kindString,
	"dataset_id":          kindString,
	"dad_callset_name":    kindString,
	"mom_callset_name":    kindString,
	"child_callset_name":  kindString,
	"denovo_mut_rate":     kindFloat,
	"seq_err_rate":        kindFloat,
	"lrt_threshold":       kindFloat,
	"num_threads":         kindInt,
	"max_variant_results": kindInt,
	"max_api_retries":     kindInt,
	"log_level":           kindString,
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configurableKeys))
	for k := range configurableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newConfigCmd mirrors the teacher's cmd/vibe-vep/config.go show/get/set
// triad, adapted to ~/.denovo-caller.yaml and to this module's own flag set
// (denovo-caller has no transcript-annotation config to show, only the
// run-flag defaults listed in configurableKeys).
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage denovo-caller configuration",
		Long:  "Show, get, or set run-flag defaults. Config is stored in ~/.denovo-caller.yaml.",
		Example: `  denovo-caller config                              # show all configured defaults
  denovo-caller config set denovo_mut_rate 1e-9      # change a default
  denovo-caller config get lrt_threshold             # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a run-flag default",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a run-flag default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Printf("# No configuration set. Config file: ~/.denovo-caller.yaml\n# Configurable keys: %s\n",
			strings.Join(sortedConfigKeys(), ", "))
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

// runConfigSet rejects any key outside configurableKeys and coerces value
// to that key's expected type before persisting, so a malformed
// ~/.denovo-caller.yaml entry is caught at `config set` time rather than
// surfacing as a confusing flag-parse error deep inside `run`.
func runConfigSet(key, value string) error {
	kind, ok := configurableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(sortedConfigKeys(), ", "))
	}

	switch kind {
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config key %q expects a float, got %q: %w", key, value, err)
		}
		viper.Set(key, f)
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config key %q expects an int, got %q: %w", key, value, err)
		}
		viper.Set(key, n)
	default:
		viper.Set(key, value)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".denovo-caller.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	if _, ok := configurableKeys[key]; !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(sortedConfigKeys(), ", "))
	}
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
