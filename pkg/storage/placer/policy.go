// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"fmt"

	"github.com/LeeDigitalWorks/rackplace/pkg/logger"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/rs/zerolog"
)

const (
	PolicyDefault           = "default"
	PolicyRackFaultTolerant = "rack-fault-tolerant"
)

// Placement is the per-call state of one placement. Results is appended to
// as targets are chosen; Excluded only grows.
type Placement struct {
	Writer     *types.Node
	Excluded   ExcludedNodes
	BlockSize  uint64
	AvoidStale bool
	Demand     *types.StorageTypeDemand
	Results    []types.StorageTarget
}

// Policy is the set of hooks a block placement strategy provides
type Policy interface {
	Name() string
	// MaxNodesPerRack clamps numWanted to the cluster size and returns it
	// with the per-rack replica cap.
	MaxNodesPerRack(numChosen, numWanted int) (wanted, maxPerRack int)
	// PlaceReplicas appends numReplicas targets to pl.Results and returns the
	// writer's local node. Targets placed before a NotEnoughReplicas failure
	// stay in pl.Results.
	PlaceReplicas(numReplicas, maxPerRack int, pl *Placement) (*types.Node, error)
	// VerifyPlacement reports the rack spread of locs. It never fails.
	VerifyPlacement(locs []*types.Node, numReplicas int) PlacementStatus
	// PickReplicaSet chooses which group to take replicas from when some
	// racks hold several replicas and others exactly one.
	PickReplicaSet(moreThanOne, exactlyOne []types.StorageTarget) []types.StorageTarget
}

// NewPolicy builds the named policy
func NewPolicy(name string, topo Topology, selector CandidateSelector) (Policy, error) {
	if name == "" {
		name = PolicyDefault
	}
	base := basePolicy{
		topo:     topo,
		selector: selector,
		log:      logger.Component("placer").With().Str("policy", name).Logger(),
	}
	switch name {
	case PolicyDefault:
		return &defaultPolicy{basePolicy: base}, nil
	case PolicyRackFaultTolerant:
		return &rackFaultTolerantPolicy{basePolicy: base}, nil
	default:
		return nil, fmt.Errorf("unknown placement policy %q", name)
	}
}

type outcome int

const (
	outcomeComplete outcome = iota
	outcomeShort
)

// attempt is the result of one selection pass. A short attempt carries the
// reason; the targets it did place are already in Placement.Results.
type attempt struct {
	writer  *types.Node
	outcome outcome
	reason  *NotEnoughReplicasError
}

func (a attempt) err() error {
	if a.outcome == outcomeComplete {
		return nil
	}
	return a.reason
}

type basePolicy struct {
	topo     Topology
	selector CandidateSelector
	log      zerolog.Logger
}

// clampReplicas keeps numChosen+numWanted within the cluster's leaf count
func (b *basePolicy) clampReplicas(numChosen, numWanted int) (wanted, total int) {
	clusterSize := b.topo.LeafCount()
	wanted = numWanted
	total = numChosen + numWanted
	if total > clusterSize {
		wanted -= total - clusterSize
		total = clusterSize
	}
	if wanted < 0 {
		wanted = 0
	}
	return wanted, total
}

// chooseOnce places the first replica near the writer and the rest at random
// across the cluster, all under maxPerRack. excluded is the set this pass
// works against and may differ from pl.Excluded.
func (b *basePolicy) chooseOnce(numReplicas int, writer *types.Node, excluded ExcludedNodes, maxPerRack int, pl *Placement) attempt {
	if numReplicas <= 0 {
		return attempt{writer: writer}
	}

	sel := &Selection{
		Excluded:   excluded,
		BlockSize:  pl.BlockSize,
		MaxPerRack: maxPerRack,
		Demand:     pl.Demand,
		AvoidStale: pl.AvoidStale,
		Results:    pl.Results,
	}
	defer func() { pl.Results = sel.Results }()

	before := len(sel.Results)
	local, err := b.selector.ChooseLocal(writer, sel)
	if err != nil {
		return attempt{writer: writer, outcome: outcomeShort, reason: asNotEnoughReplicas(err, numReplicas, 0)}
	}
	if numReplicas == 1 {
		return attempt{writer: local.Node}
	}
	if err := b.selector.ChooseRandom(numReplicas-1, "", sel); err != nil {
		return attempt{writer: writer, outcome: outcomeShort, reason: asNotEnoughReplicas(err, numReplicas, len(sel.Results)-before)}
	}
	return attempt{writer: local.Node}
}

func (b *basePolicy) PickReplicaSet(moreThanOne, exactlyOne []types.StorageTarget) []types.StorageTarget {
	if len(moreThanOne) == 0 {
		return exactlyOne
	}
	return moreThanOne
}
