// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"math/rand"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/google/uuid"
)

// Topology is the read-only cluster view placement works against.
// Successive calls may observe different cluster states.
type Topology interface {
	LeafCount() int
	RackCount() int
	HasEverBeenMultiRack() bool
	RackOf(id uuid.UUID) (string, bool)
	Node(id uuid.UUID) (*types.Node, bool)
	// Nodes returns the nodes in a rack, or every node for an empty scope
	Nodes(scope string) []*types.Node
}

// Selection is the state a single selection pass works against. The selector
// appends chosen targets to Results, adds every node it examines to Excluded
// and consumes Demand.
type Selection struct {
	Excluded   ExcludedNodes
	BlockSize  uint64
	MaxPerRack int
	Demand     *types.StorageTypeDemand
	AvoidStale bool
	Results    []types.StorageTarget
}

// CandidateSelector picks eligible storage targets one at a time.
type CandidateSelector interface {
	// ChooseLocal prefers the writer itself, then the writer's rack, then
	// anywhere. A nil writer picks at random.
	ChooseLocal(writer *types.Node, sel *Selection) (types.StorageTarget, error)
	// ChooseRandom picks numReplicas targets uniformly at random from scope
	// (a rack name, or "" for the whole cluster). Targets chosen before a
	// failure stay in sel.Results.
	ChooseRandom(numReplicas int, scope string, sel *Selection) error
}

// RandomSelector is the CandidateSelector backed by a Topology
type RandomSelector struct {
	topo Topology

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a selector. A zero seed uses the clock.
func NewRandomSelector(topo Topology, seed int64) *RandomSelector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSelector{
		topo: topo,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *RandomSelector) ChooseLocal(writer *types.Node, sel *Selection) (types.StorageTarget, error) {
	if writer == nil {
		return s.chooseOne("", sel)
	}

	nere := newNotEnoughReplicas(1, 0, writer.Rack)
	if local, ok := s.topo.Node(writer.NodeID); ok && sel.Excluded.Add(local.NodeID) {
		if t, ok := s.tryNode(local, sel, nere); ok {
			return t, nil
		}
	}

	rack := writer.Rack
	if current, ok := s.topo.RackOf(writer.NodeID); ok {
		rack = current
	}
	if t, err := s.chooseOne(rack, sel); err == nil {
		return t, nil
	}
	return s.chooseOne("", sel)
}

func (s *RandomSelector) chooseOne(scope string, sel *Selection) (types.StorageTarget, error) {
	before := len(sel.Results)
	if err := s.ChooseRandom(1, scope, sel); err != nil {
		return types.StorageTarget{}, err
	}
	return sel.Results[before], nil
}

func (s *RandomSelector) ChooseRandom(numReplicas int, scope string, sel *Selection) error {
	if numReplicas <= 0 {
		return nil
	}
	nere := newNotEnoughReplicas(numReplicas, 0, scope)

	var candidates []*types.Node
	for _, n := range s.topo.Nodes(scope) {
		if !sel.Excluded.Contains(n.NodeID) {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		nere.reject(ReasonNoCandidates)
		return nere
	}

	chosen := 0
	for chosen < numReplicas && len(candidates) > 0 {
		i := s.intn(len(candidates))
		node := candidates[i]
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		if !sel.Excluded.Add(node.NodeID) {
			continue
		}
		if _, ok := s.tryNode(node, sel, nere); ok {
			chosen++
		}
	}

	if chosen < numReplicas {
		nere.Chosen = chosen
		return nere
	}
	return nil
}

// tryNode checks one node against the selection constraints and, when it
// qualifies, appends a target for it to sel.Results.
func (s *RandomSelector) tryNode(node *types.Node, sel *Selection, nere *NotEnoughReplicasError) (types.StorageTarget, bool) {
	if sel.AvoidStale && node.Stale {
		nere.reject(ReasonNodeStale)
		return types.StorageTarget{}, false
	}

	onRack := 1
	for _, r := range sel.Results {
		if r.Rack == node.Rack {
			onRack++
		}
	}
	if onRack > sel.MaxPerRack {
		nere.reject(ReasonTooManyNodesOnRack)
		return types.StorageTarget{}, false
	}

	storage, reason := s.storageFor(node, sel)
	if storage == nil {
		nere.reject(reason)
		return types.StorageTarget{}, false
	}

	t := types.NewStorageTarget(node, storage)
	sel.Results = append(sel.Results, t)
	return t, true
}

func (s *RandomSelector) storageFor(node *types.Node, sel *Selection) (*types.Storage, RejectReason) {
	if sel.Demand.Unconstrained() {
		if st, ok := node.AnyStorage(sel.BlockSize); ok {
			return st, ""
		}
		return nil, ReasonNotEnoughSpace
	}

	wanted := sel.Demand.Types()
	if len(wanted) == 0 {
		return nil, ReasonStorageTypesMissing
	}
	reason := ReasonNoRequiredStorage
	for _, t := range wanted {
		if st, ok := node.StorageFor(t, sel.BlockSize); ok {
			sel.Demand.Take(t)
			return st, ""
		}
		if node.HasStorageType(t) {
			reason = ReasonNotEnoughSpace
		}
	}
	return nil, reason
}

func (s *RandomSelector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
