// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/storage/placer"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check whether a replica set spans enough racks",
	Long: `Verify reports how many distinct racks the given nodes span against the number
the policy requires. Exits non-zero when the placement is not satisfied.`,
	Run: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	addPlacerFlags(verifyCmd)
	f := verifyCmd.Flags()
	f.String("nodes", "", "Comma separated names of the nodes holding the replicas")
	f.Int("replicas", 0, "Expected replica count (0 = number of nodes)")
}

func runVerify(cmd *cobra.Command, args []string) {
	f := NewFlagLoader(cmd)
	cfg := loadPlacerConfig(f)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid options")
	}

	names := f.List("nodes")
	if len(names) == 0 {
		logger.Fatal().Msg("--nodes is required")
	}
	replicas := f.Int("replicas")
	if replicas <= 0 {
		replicas = len(names)
	}

	topo := loadTopology(f.String("topology"))
	locs := make([]*types.Node, 0, len(names))
	for _, name := range names {
		n, ok := topo.NodeByName(name)
		if !ok {
			logger.Fatal().Str("node", name).Msg("Node not found in topology")
		}
		locs = append(locs, n)
	}

	p, err := placer.New(cfg, topo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create placer")
	}

	st := p.Verify(locs, replicas)
	printStatus(os.Stdout, p.Policy().Name(), st)
	if !st.IsSatisfied() {
		os.Exit(1)
	}
}

func printStatus(out io.Writer, policy string, st placer.PlacementStatus) {
	fmt.Fprintf(out, "Policy:      %s\n", policy)
	fmt.Fprintf(out, "Racks used:  %d [%s]\n", st.CurrentRacks(), strings.Join(st.Racks(), " "))
	fmt.Fprintf(out, "Required:    %d\n", st.RequiredRacks())
	fmt.Fprintf(out, "Total racks: %d\n", st.TotalRacks())
	fmt.Fprintf(out, "Satisfied:   %t\n", st.IsSatisfied())
	if !st.IsSatisfied() {
		fmt.Fprintf(out, "Additional:  %d\n", st.AdditionalReplicasRequired())
	}
	fmt.Fprintf(out, "%s\n", st)
}
