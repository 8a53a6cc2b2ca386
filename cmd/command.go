// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"time"

	"github.com/LeeDigitalWorks/rackplace/pkg/env"
	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/topology"
	"github.com/LeeDigitalWorks/rackplace/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rackplace",
	Short: "rackplace - rack-aware replica placement",
	Long: `rackplace chooses storage targets for block replicas across the racks of a
cluster, spreading replicas so that losing a rack loses as few of them as possible.
It can place a block, verify an existing placement, or simulate many placements.`,
	PersistentPreRun: initialize,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	rootCmd.PersistentFlags().String("log_level", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().Bool("log_json", env.IsProduction(), "Write logs as JSON instead of console output (default on in production)")
}

// initialize sets up logging on stderr, keeping stdout for results, and merges
// rackplace.{yaml,json,toml} from the config directories.
func initialize(cmd *cobra.Command, args []string) {
	initializeLogging(cmd)
	utils.LoadConfiguration("rackplace", false)
}

func initializeLogging(cmd *cobra.Command) {
	jsonLogs, _ := cmd.Flags().GetBool("log_json")
	if jsonLogs {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	levelName, _ := cmd.Flags().GetString("log_level")
	if levelName == "" {
		return
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		logger.Warn().Err(err).Str("log_level", levelName).Msg("Ignoring invalid log level")
		return
	}
	logger.SetLevel(level)
}

// loadTopology reads the topology file or exits
func loadTopology(path string) *topology.Topology {
	if path == "" {
		logger.Fatal().Msg("--topology is required")
	}
	topo, err := topology.LoadFile(utils.ResolvePath(path))
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("Failed to load topology")
	}
	logger.Debug().
		Int("nodes", topo.LeafCount()).
		Int("racks", topo.RackCount()).
		Msg("Loaded topology")
	return topo
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
