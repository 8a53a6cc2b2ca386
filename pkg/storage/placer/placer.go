// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Config selects and tunes the placement policy
type Config struct {
	Policy          string `mapstructure:"policy"`
	AvoidStaleNodes bool   `mapstructure:"avoid_stale_nodes"`
	// Seed for candidate selection; 0 seeds from the clock
	Seed int64 `mapstructure:"seed"`
}

// DefaultConfig returns the rack-fault-tolerant policy with stale avoidance
func DefaultConfig() Config {
	return Config{
		Policy:          PolicyRackFaultTolerant,
		AvoidStaleNodes: true,
	}
}

func (c Config) Validate() error {
	switch c.Policy {
	case PolicyDefault, PolicyRackFaultTolerant, "":
		return nil
	default:
		return fmt.Errorf("unknown placement policy %q (want %q or %q)", c.Policy, PolicyDefault, PolicyRackFaultTolerant)
	}
}

// Request describes one block that needs replicas
type Request struct {
	NumReplicas int
	// Writer is the node that initiated the write; uuid.Nil for none
	Writer uuid.UUID
	// Chosen are storages already holding the block
	Chosen   []types.StorageTarget
	Excluded []uuid.UUID
	// BlockSize is the free space each chosen storage must have
	BlockSize     uint64
	StoragePolicy *types.StoragePolicy
	// ReturnChosen keeps Chosen at the front of the returned targets
	ReturnChosen bool
}

// Result is the outcome of ChooseTargets
type Result struct {
	Targets []types.StorageTarget
	// Writer is the locality anchor the placement settled on
	Writer *types.Node
	// Expected is the replica count aimed for, Chosen included, after
	// clamping to the cluster size
	Expected int
	Status   PlacementStatus
}

// Placer chooses targets for blocks with one policy. It keeps no per-call
// state and is safe for concurrent use.
type Placer struct {
	policy     Policy
	topo       Topology
	avoidStale bool
}

// New creates a placer with a RandomSelector over topo
func New(cfg Config, topo Topology) (*Placer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := NewPolicy(cfg.Policy, topo, NewRandomSelector(topo, cfg.Seed))
	if err != nil {
		return nil, err
	}
	return NewWithPolicy(policy, topo, cfg.AvoidStaleNodes), nil
}

// NewWithPolicy creates a placer around an existing policy
func NewWithPolicy(policy Policy, topo Topology, avoidStale bool) *Placer {
	return &Placer{policy: policy, topo: topo, avoidStale: avoidStale}
}

// Policy returns the placement policy in use
func (p *Placer) Policy() Policy {
	return p.policy
}

// ChooseTargets picks storages for req.NumReplicas more replicas. When the
// cluster cannot supply them all, the targets that were placed are returned
// along with a *NotEnoughReplicasError.
func (p *Placer) ChooseTargets(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	name := p.policy.Name()
	defer func() {
		placementDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	log := logger.Ctx(ctx).With().
		Str("policy", name).
		Int("replicas", req.NumReplicas).
		Str("block_size", humanize.IBytes(req.BlockSize)).
		Logger()

	res := &Result{Expected: len(req.Chosen)}
	if req.ReturnChosen {
		res.Targets = append(res.Targets, req.Chosen...)
	}
	if req.NumReplicas <= 0 || p.topo.LeafCount() == 0 {
		placementRequests.WithLabelValues(name, "empty").Inc()
		return res, nil
	}

	wanted, maxPerRack := p.policy.MaxNodesPerRack(len(req.Chosen), req.NumReplicas)

	excluded := NewExcludedNodes(req.Excluded...)
	excluded.AddTargets(req.Chosen)

	var writer *types.Node
	if req.Writer != uuid.Nil {
		writer, _ = p.topo.Node(req.Writer)
	}
	if writer == nil && len(req.Chosen) > 0 {
		writer = req.Chosen[0].Node
	}

	chosenTypes := make([]types.StorageType, 0, len(req.Chosen))
	for _, t := range req.Chosen {
		chosenTypes = append(chosenTypes, t.Type())
	}

	pl := &Placement{
		Writer:     writer,
		Excluded:   excluded,
		BlockSize:  req.BlockSize,
		AvoidStale: p.avoidStale,
		Demand:     req.StoragePolicy.Demand(wanted, chosenTypes),
		Results:    append([]types.StorageTarget(nil), req.Chosen...),
	}
	totalExpected := len(pl.Results) + wanted
	res.Expected = totalExpected

	// Stale retries start over from the caller's exclusions
	retryExcluded := excluded.Clone()

	local, err := p.policy.PlaceReplicas(wanted, maxPerRack, pl)
	if err != nil && errors.Is(err, ErrNotEnoughReplicas) {
		log.Warn().Err(err).
			Int("still_needed", totalExpected-len(pl.Results)).
			Int("expected", totalExpected).
			Msg("Failed to place enough replicas")

		if pl.AvoidStale {
			staleRetries.WithLabelValues(name).Inc()
			retryExcluded.AddTargets(pl.Results)
			pl.Excluded = retryExcluded
			pl.AvoidStale = false
			local, err = p.policy.PlaceReplicas(totalExpected-len(pl.Results), maxPerRack, pl)
		}
	}
	if err != nil && !errors.Is(err, ErrNotEnoughReplicas) {
		return nil, err
	}

	res.Writer = local
	if res.Writer == nil {
		res.Writer = writer
	}
	if req.ReturnChosen {
		res.Targets = pl.Results
	} else {
		res.Targets = pl.Results[len(req.Chosen):]
	}
	res.Status = p.policy.VerifyPlacement(targetList(pl.Results).nodes(), totalExpected)

	if len(pl.Results) < totalExpected {
		placementRequests.WithLabelValues(name, "partial").Inc()
		var nere *NotEnoughReplicasError
		if !errors.As(err, &nere) {
			nere = newNotEnoughReplicas(totalExpected, len(pl.Results), "")
		}
		return res, nere
	}

	placementRequests.WithLabelValues(name, "complete").Inc()
	log.Debug().
		Stringer("targets", targetList(res.Targets)).
		Int("max_per_rack", maxPerRack).
		Msg("placed replicas")
	return res, nil
}

// Verify reports how many racks locs span against numReplicas
func (p *Placer) Verify(locs []*types.Node, numReplicas int) PlacementStatus {
	st := p.policy.VerifyPlacement(locs, numReplicas)
	verifications.WithLabelValues(p.policy.Name(), strconv.FormatBool(st.IsSatisfied())).Inc()
	return st
}

// VerifyTargets is Verify over the nodes of targets
func (p *Placer) VerifyTargets(targets []types.StorageTarget, numReplicas int) PlacementStatus {
	return p.Verify(targetList(targets).nodes(), numReplicas)
}

type targetList []types.StorageTarget

func (l targetList) nodes() []*types.Node {
	out := make([]*types.Node, len(l))
	for i, t := range l {
		out[i] = t.Node
	}
	return out
}

func (l targetList) String() string {
	parts := make([]string, len(l))
	for i, t := range l {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
