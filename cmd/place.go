// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/storage/placer"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// PlaceOpts holds configuration for a single placement
type PlaceOpts struct {
	Topology      string
	Replicas      int
	Writer        string
	Exclude       []string
	BlockSize     uint64
	StoragePolicy *types.StoragePolicy
	Placer        placer.Config
}

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Choose targets for one block",
	Long: `Choose storage targets for the replicas of one block and print them with the
rack placement status. Exits non-zero when fewer replicas than requested could be placed.`,
	Run: runPlace,
}

func init() {
	rootCmd.AddCommand(placeCmd)

	addPlacerFlags(placeCmd)
	f := placeCmd.Flags()
	f.Int("replicas", 3, "Number of replicas to place")
	f.String("writer", "", "Name of the node writing the block (preferred for the first replica)")
	f.String("exclude", "", "Comma separated node names that must not be chosen")
	f.String("block_size", "128MiB", "Free space every chosen storage must have")
	f.String("storage_policy", "", "Storage policy (HOT, WARM, COLD, ONE_SSD, ALL_SSD); empty accepts any storage")
}

func runPlace(cmd *cobra.Command, args []string) {
	opts, err := loadPlaceOpts(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid options")
	}

	topo := loadTopology(opts.Topology)
	p, err := placer.New(opts.Placer, topo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create placer")
	}

	req := placer.Request{
		NumReplicas:   opts.Replicas,
		BlockSize:     opts.BlockSize,
		StoragePolicy: opts.StoragePolicy,
	}
	if opts.Writer != "" {
		req.Writer = types.NodeIDFromName(opts.Writer)
	}
	for _, name := range opts.Exclude {
		req.Excluded = append(req.Excluded, types.NodeIDFromName(name))
	}

	res, err := p.ChooseTargets(cmd.Context(), req)
	if err != nil && !errors.Is(err, placer.ErrNotEnoughReplicas) {
		logger.Fatal().Err(err).Msg("Placement failed")
	}

	printTargets(os.Stdout, res)
	if err != nil {
		logger.Error().Err(err).Msg("Placement incomplete")
		os.Exit(1)
	}
}

func loadPlaceOpts(cmd *cobra.Command) (PlaceOpts, error) {
	f := NewFlagLoader(cmd)

	blockSize, err := f.Bytes("block_size")
	if err != nil {
		return PlaceOpts{}, err
	}
	sp, err := types.LookupStoragePolicy(f.String("storage_policy"))
	if err != nil {
		return PlaceOpts{}, err
	}
	opts := PlaceOpts{
		Topology:      f.String("topology"),
		Replicas:      f.Int("replicas"),
		Writer:        f.String("writer"),
		Exclude:       f.List("exclude"),
		BlockSize:     blockSize,
		StoragePolicy: sp,
		Placer:        loadPlacerConfig(f),
	}
	if opts.Replicas < 0 {
		return PlaceOpts{}, fmt.Errorf("--replicas must not be negative, got %d", opts.Replicas)
	}
	return opts, opts.Placer.Validate()
}

func printTargets(out io.Writer, res *placer.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNODE\tRACK\tSTORAGE\tTYPE\tFREE\tSTALE")
	fmt.Fprintln(w, "-\t----\t----\t-------\t----\t----\t-----")
	for i, t := range res.Targets {
		storageID, free := "-", "-"
		if t.Storage != nil {
			storageID = t.Storage.ID
			free = humanize.IBytes(t.Storage.FreeBytes())
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			i+1, t.Node.Name, t.Rack, storageID, t.Type(), free, t.Node.Stale)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Placed %d of %d expected replicas\n", len(res.Targets), res.Expected)
	if res.Writer != nil && res.Writer.NodeID != uuid.Nil {
		fmt.Fprintf(out, "Writer:    %s\n", res.Writer)
	}
	fmt.Fprintf(out, "Racks:     %d of %d required (cluster racks: %d)\n",
		res.Status.CurrentRacks(), res.Status.RequiredRacks(), res.Status.TotalRacks())
	fmt.Fprintf(out, "Status:    %s\n", res.Status)
}
