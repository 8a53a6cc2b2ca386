// Package cmd provides the rackplace CLI.
// This file contains reusable helpers for configuration loading with CLI flag precedence.
package cmd

import (
	"fmt"

	"github.com/LeeDigitalWorks/rackplace/pkg/storage/placer"
	"github.com/LeeDigitalWorks/rackplace/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagLoader provides methods for loading configuration values with CLI flag precedence.
// When a CLI flag is explicitly set, it takes precedence over config file and env vars.
// Otherwise, viper's standard priority applies: env > config file > default.
type FlagLoader struct {
	cmd *cobra.Command
}

// NewFlagLoader binds the command's flags as viper defaults and returns a
// loader for them. Binding happens per run so that commands sharing a flag
// name keep their own defaults.
func NewFlagLoader(cmd *cobra.Command) *FlagLoader {
	viper.BindPFlags(cmd.Flags())
	return &FlagLoader{cmd: cmd}
}

// String returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) String(flagName string) string {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetString(flagName)
		return val
	}
	return viper.GetString(flagName)
}

// Int returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Int(flagName string) int {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetInt(flagName)
		return val
	}
	return viper.GetInt(flagName)
}

// Int64 returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Int64(flagName string) int64 {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetInt64(flagName)
		return val
	}
	return viper.GetInt64(flagName)
}

// Bool returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Bool(flagName string) bool {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetBool(flagName)
		return val
	}
	return viper.GetBool(flagName)
}

// List returns a comma separated string flag split into its items
func (f *FlagLoader) List(flagName string) []string {
	return utils.SplitList(f.String(flagName))
}

// Bytes parses a human readable size flag such as "128MiB"
func (f *FlagLoader) Bytes(flagName string) (uint64, error) {
	s := f.String(flagName)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", flagName, err)
	}
	return n, nil
}

// addPlacerFlags registers the flags every placing command shares
func addPlacerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	def := placer.DefaultConfig()
	f.String("topology", "topology.yaml", "Topology file describing racks, nodes and storages")
	f.String("policy", def.Policy, fmt.Sprintf("Placement policy (%s, %s)", placer.PolicyDefault, placer.PolicyRackFaultTolerant))
	f.Bool("avoid_stale_nodes", def.AvoidStaleNodes, "Skip stale nodes on the first placement attempt")
	f.Int64("seed", 0, "Random seed for candidate selection (0 = time based)")
}

// loadPlacerConfig reads the flags registered by addPlacerFlags
func loadPlacerConfig(f *FlagLoader) placer.Config {
	return placer.Config{
		Policy:          f.String("policy"),
		AvoidStaleNodes: f.Bool("avoid_stale_nodes"),
		Seed:            f.Int64("seed"),
	}
}
