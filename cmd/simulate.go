// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/LeeDigitalWorks/rackplace/pkg/debug"
	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/storage/placer"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// SimulateOpts holds configuration for a placement simulation
type SimulateOpts struct {
	PlaceOpts
	Blocks      int
	Parallel    int
	WriterLocal bool
	DebugAddr   string
	ServeAfter  bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Place many blocks and report the replica distribution",
	Long: `Simulate places --blocks blocks concurrently against one topology and prints how
replicas spread over racks, how many placements came up short, and why. With
--debug_addr set, metrics and pprof are served while the simulation runs.`,
	Run: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	addPlacerFlags(simulateCmd)
	f := simulateCmd.Flags()
	f.Int("replicas", 3, "Number of replicas per block")
	f.String("exclude", "", "Comma separated node names that must not be chosen")
	f.String("block_size", "128MiB", "Free space every chosen storage must have")
	f.String("storage_policy", "", "Storage policy (HOT, WARM, COLD, ONE_SSD, ALL_SSD); empty accepts any storage")
	f.Int("blocks", 1000, "Number of blocks to place")
	f.Int("parallel", runtime.NumCPU(), "Placements running at once")
	f.Bool("writer_local", true, "Use the cluster nodes in turn as the writer of each block")
	f.String("debug_addr", "", "Serve /metrics, /health and pprof on this address (e.g. localhost:8070)")
	f.Bool("serve_after", false, "Keep serving --debug_addr after the simulation until interrupted")
}

func loadSimulateOpts(cmd *cobra.Command) (SimulateOpts, error) {
	place, err := loadPlaceOpts(cmd)
	if err != nil {
		return SimulateOpts{}, err
	}
	f := NewFlagLoader(cmd)
	opts := SimulateOpts{
		PlaceOpts:   place,
		Blocks:      f.Int("blocks"),
		Parallel:    f.Int("parallel"),
		WriterLocal: f.Bool("writer_local"),
		DebugAddr:   f.String("debug_addr"),
		ServeAfter:  f.Bool("serve_after"),
	}
	if opts.Blocks <= 0 {
		return SimulateOpts{}, fmt.Errorf("--blocks must be positive, got %d", opts.Blocks)
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	return opts, nil
}

func runSimulate(cmd *cobra.Command, args []string) {
	opts, err := loadSimulateOpts(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid options")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topo := loadTopology(opts.Topology)
	p, err := placer.New(opts.Placer, topo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create placer")
	}

	var serverDone <-chan error
	if opts.DebugAddr != "" {
		debug.SetNotReady()
		addr, done, err := debug.Serve(ctx, opts.DebugAddr)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", opts.DebugAddr).Msg("Failed to start debug server")
		}
		serverDone = done
		logger.Info().Stringer("addr", addr).Msg("Debug server listening")
		debug.SetReady()
	}

	start := time.Now()
	report, err := simulate(ctx, p, topo.Nodes(""), opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Simulation aborted")
	}
	report.Elapsed = time.Since(start)
	report.Print(os.Stdout)

	if serverDone != nil {
		if opts.ServeAfter {
			logger.Info().Msg("Simulation finished, serving metrics until interrupted")
			<-ctx.Done()
		}
		stop()
		if err := <-serverDone; err != nil {
			logger.Warn().Err(err).Msg("Debug server stopped")
		}
	}
}

// simulate runs opts.Blocks placements with at most opts.Parallel in flight
func simulate(ctx context.Context, p *placer.Placer, nodes []*types.Node, opts SimulateOpts) (*SimulationReport, error) {
	report := NewSimulationReport(opts.Replicas)
	log := logger.Component("simulate")
	ctx = logger.WithLogger(ctx, &log)

	excluded := make([]uuid.UUID, 0, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded = append(excluded, types.NodeIDFromName(name))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for i := 0; i < opts.Blocks; i++ {
		if gctx.Err() != nil {
			break
		}
		req := placer.Request{
			NumReplicas:   opts.Replicas,
			Excluded:      excluded,
			BlockSize:     opts.BlockSize,
			StoragePolicy: opts.StoragePolicy,
		}
		if opts.WriterLocal && len(nodes) > 0 {
			req.Writer = nodes[i%len(nodes)].NodeID
		}

		g.Go(func() error {
			res, err := p.ChooseTargets(gctx, req)
			if err != nil && !errors.Is(err, placer.ErrNotEnoughReplicas) {
				return err
			}
			report.Record(res, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, ctx.Err()
}

// SimulationReport aggregates the outcome of many placements. Record is
// safe for concurrent use.
type SimulationReport struct {
	Replicas int
	Elapsed  time.Duration

	mu          sync.Mutex
	blocks      int
	complete    int
	partial     int
	unsatisfied int
	perRack     map[string]int
	perNode     map[string]int
	reasons     map[placer.RejectReason]int
}

func NewSimulationReport(replicas int) *SimulationReport {
	return &SimulationReport{
		Replicas: replicas,
		perRack:  make(map[string]int),
		perNode:  make(map[string]int),
		reasons:  make(map[placer.RejectReason]int),
	}
}

// Record adds one placement outcome. err is nil or a not-enough-replicas error.
func (r *SimulationReport) Record(res *placer.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blocks++
	if res != nil {
		for _, t := range res.Targets {
			r.perRack[t.Rack]++
			r.perNode[t.Node.Name]++
		}
		if !res.Status.IsSatisfied() {
			r.unsatisfied++
		}
	}

	var nere *placer.NotEnoughReplicasError
	if errors.As(err, &nere) {
		r.partial++
		for reason, n := range nere.Reasons {
			r.reasons[reason] += n
		}
		return
	}
	r.complete++
}

// RackShare returns the replicas placed on each rack
func (r *SimulationReport) RackShare() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.perRack))
	for k, v := range r.perRack {
		out[k] = v
	}
	return out
}

// Counts returns total, complete, partial and unsatisfied placements
func (r *SimulationReport) Counts() (blocks, complete, partial, unsatisfied int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks, r.complete, r.partial, r.unsatisfied
}

func (r *SimulationReport) Print(out io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var placed int
	for _, n := range r.perRack {
		placed += n
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RACK\tREPLICAS\tSHARE")
	fmt.Fprintln(w, "----\t--------\t-----")
	for _, rack := range sortedKeys(r.perRack) {
		share := 0.0
		if placed > 0 {
			share = float64(r.perRack[rack]) / float64(placed) * 100
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", rack, r.perRack[rack], share)
	}
	w.Flush()

	minNode, maxNode := -1, 0
	for _, n := range r.perNode {
		if minNode < 0 || n < minNode {
			minNode = n
		}
		if n > maxNode {
			maxNode = n
		}
	}
	if minNode < 0 {
		minNode = 0
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Simulation Summary:\n")
	fmt.Fprintf(out, "  Blocks:            %d (%d replicas each)\n", r.blocks, r.Replicas)
	fmt.Fprintf(out, "  Replicas placed:   %d\n", placed)
	fmt.Fprintf(out, "  Complete:          %d\n", r.complete)
	fmt.Fprintf(out, "  Short:             %d\n", r.partial)
	fmt.Fprintf(out, "  Rack unsatisfied:  %d\n", r.unsatisfied)
	fmt.Fprintf(out, "  Per node:          min %d, max %d\n", minNode, maxNode)
	if r.Elapsed > 0 {
		fmt.Fprintf(out, "  Elapsed:           %s\n", r.Elapsed.Round(time.Millisecond))
	}

	if len(r.reasons) > 0 {
		fmt.Fprintf(out, "\nShortfall reasons:\n")
		reasons := make([]string, 0, len(r.reasons))
		for reason := range r.reasons {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(out, "  %-45s %d\n", reason, r.reasons[placer.RejectReason(reason)])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
