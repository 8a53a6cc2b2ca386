// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology holds the cluster map used for replica placement: racks
// containing leaf storage nodes.
package topology

import (
	"fmt"
	"sort"
	"sync"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// Topology is safe for concurrent use. Readers see each call's result
// independently; there is no snapshot across calls.
type Topology struct {
	mu     sync.RWMutex
	nodes  map[uuid.UUID]*types.Node
	byName map[string]uuid.UUID
	racks  map[string]map[uuid.UUID]struct{}
	// rackIndex keeps rack names ordered for deterministic iteration
	rackIndex *btree.BTreeG[string]
	// everMultiRack is sticky: once the cluster had two racks it stays set
	everMultiRack bool
}

// New creates an empty topology
func New() *Topology {
	return &Topology{
		nodes:     make(map[uuid.UUID]*types.Node),
		byName:    make(map[string]uuid.UUID),
		racks:     make(map[string]map[uuid.UUID]struct{}),
		rackIndex: btree.NewOrderedG[string](8),
	}
}

// Add registers a node, replacing any node with the same ID. A replaced node
// may move between racks.
func (t *Topology) Add(n *types.Node) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.NodeID == uuid.Nil {
		return fmt.Errorf("node %q has no ID", n.Name)
	}
	n.Rack = types.NormalizeNetworkLocation(n.Rack)

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byName[n.Name]; ok && id != n.NodeID {
		return fmt.Errorf("node name %q already registered with ID %s", n.Name, id)
	}
	if old, ok := t.nodes[n.NodeID]; ok {
		t.removeLocked(old)
	}

	t.nodes[n.NodeID] = n
	t.byName[n.Name] = n.NodeID
	members, ok := t.racks[n.Rack]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		t.racks[n.Rack] = members
		t.rackIndex.ReplaceOrInsert(n.Rack)
	}
	members[n.NodeID] = struct{}{}

	if len(t.racks) > 1 {
		t.everMultiRack = true
	}
	return nil
}

// Remove unregisters a node. Racks left empty are dropped.
func (t *Topology) Remove(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	t.removeLocked(n)
	return true
}

func (t *Topology) removeLocked(n *types.Node) {
	delete(t.nodes, n.NodeID)
	delete(t.byName, n.Name)
	members := t.racks[n.Rack]
	delete(members, n.NodeID)
	if len(members) == 0 {
		delete(t.racks, n.Rack)
		t.rackIndex.Delete(n.Rack)
	}
}

// SetStale marks a node stale or fresh. The node value is replaced, not
// mutated, so targets already handed out keep their view.
func (t *Topology) SetStale(id uuid.UUID, stale bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	cp := *n
	cp.Stale = stale
	t.nodes[id] = &cp
	return true
}

// LeafCount returns the number of storage nodes
func (t *Topology) LeafCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// RackCount returns the number of racks holding at least one node
func (t *Topology) RackCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.racks)
}

// HasEverBeenMultiRack reports whether the cluster has ever spanned more
// than one rack, even if racks were later removed.
func (t *Topology) HasEverBeenMultiRack() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.everMultiRack
}

// RackOf returns the rack of a node
func (t *Topology) RackOf(id uuid.UUID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return "", false
	}
	return n.Rack, true
}

// Contains reports whether a node is registered
func (t *Topology) Contains(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nodes[id]
	return ok
}

// Node looks up a node by ID
func (t *Topology) Node(id uuid.UUID) (*types.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	return n, ok
}

// NodeByName looks up a node by name
func (t *Topology) NodeByName(name string) (*types.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// Racks returns rack names in order
func (t *Topology) Racks() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, t.rackIndex.Len())
	t.rackIndex.Ascend(func(rack string) bool {
		out = append(out, rack)
		return true
	})
	return out
}

// Rack returns a rack and its members
func (t *Topology) Rack(name string) (types.Rack, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members, ok := t.racks[types.NormalizeNetworkLocation(name)]
	if !ok {
		return types.Rack{}, false
	}
	r := types.Rack{Name: types.NormalizeNetworkLocation(name), NodeIDs: make([]uuid.UUID, 0, len(members))}
	for id := range members {
		r.NodeIDs = append(r.NodeIDs, id)
	}
	sort.Slice(r.NodeIDs, func(i, j int) bool {
		return t.nodes[r.NodeIDs[i]].Name < t.nodes[r.NodeIDs[j]].Name
	})
	return r, true
}

// Nodes returns the nodes within scope, ordered by name. An empty scope
// means the whole cluster; otherwise scope is a rack name.
func (t *Topology) Nodes(scope string) []*types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*types.Node
	if scope == "" {
		out = make([]*types.Node, 0, len(t.nodes))
		for _, n := range t.nodes {
			out = append(out, n)
		}
	} else {
		members := t.racks[types.NormalizeNetworkLocation(scope)]
		out = make([]*types.Node, 0, len(members))
		for id := range members {
			out = append(out, t.nodes[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
