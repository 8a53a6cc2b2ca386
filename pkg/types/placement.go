// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StorageTarget is a chosen placement destination: a storage slot on a node.
// Rack is captured when the target is chosen.
type StorageTarget struct {
	Node    *Node
	Storage *Storage
	Rack    string
}

// NewStorageTarget builds a target for storage s on node n
func NewStorageTarget(n *Node, s *Storage) StorageTarget {
	return StorageTarget{Node: n, Storage: s, Rack: n.Rack}
}

// NodeID returns the ID of the target's node
func (t StorageTarget) NodeID() uuid.UUID {
	if t.Node == nil {
		return uuid.Nil
	}
	return t.Node.NodeID
}

// Type returns the storage type of the target
func (t StorageTarget) Type() StorageType {
	if t.Storage == nil {
		return ""
	}
	return t.Storage.Type
}

func (t StorageTarget) String() string {
	if t.Storage == nil {
		return t.Node.String()
	}
	return fmt.Sprintf("%s[%s:%s]", t.Node, t.Storage.Type, t.Storage.ID)
}

// StorageTypeDemand is an ordered mapping from storage type to the number of
// replicas still needed on that type. A nil or empty demand accepts any type.
type StorageTypeDemand struct {
	order  []StorageType
	counts map[StorageType]int
}

// NewStorageTypeDemand builds a demand from a per-replica type list,
// preserving the order in which types first appear.
func NewStorageTypeDemand(perReplica ...StorageType) *StorageTypeDemand {
	d := &StorageTypeDemand{counts: make(map[StorageType]int)}
	for _, t := range perReplica {
		d.Add(t, 1)
	}
	return d
}

// Add increases the demand for t by n
func (d *StorageTypeDemand) Add(t StorageType, n int) {
	if n <= 0 {
		return
	}
	if d.counts == nil {
		d.counts = make(map[StorageType]int)
	}
	if _, ok := d.counts[t]; !ok {
		d.order = append(d.order, t)
	}
	d.counts[t] += n
}

// Take consumes one unit of demand for t. It reports false if t was not
// demanded.
func (d *StorageTypeDemand) Take(t StorageType) bool {
	if d == nil || d.counts[t] <= 0 {
		return false
	}
	d.counts[t]--
	return true
}

// Types returns the storage types that still have outstanding demand, in order
func (d *StorageTypeDemand) Types() []StorageType {
	if d == nil {
		return nil
	}
	var out []StorageType
	for _, t := range d.order {
		if d.counts[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the outstanding demand for t
func (d *StorageTypeDemand) Count(t StorageType) int {
	if d == nil {
		return 0
	}
	return d.counts[t]
}

// Remaining returns the total outstanding demand
func (d *StorageTypeDemand) Remaining() int {
	if d == nil {
		return 0
	}
	var n int
	for _, c := range d.counts {
		n += c
	}
	return n
}

// Unconstrained reports whether any storage type is acceptable
func (d *StorageTypeDemand) Unconstrained() bool {
	return d == nil || len(d.order) == 0
}

// Clone returns an independent copy
func (d *StorageTypeDemand) Clone() *StorageTypeDemand {
	if d == nil {
		return nil
	}
	c := &StorageTypeDemand{
		order:  append([]StorageType(nil), d.order...),
		counts: make(map[StorageType]int, len(d.counts)),
	}
	for t, n := range d.counts {
		c.counts[t] = n
	}
	return c
}

func (d *StorageTypeDemand) String() string {
	if d.Unconstrained() {
		return "{any}"
	}
	parts := make([]string, 0, len(d.order))
	for _, t := range d.order {
		parts = append(parts, fmt.Sprintf("%s=%d", t, d.counts[t]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// StoragePolicy describes which storage types a block's replicas should use.
// The i-th replica uses Types[i]; replicas beyond len(Types) use the last one.
type StoragePolicy struct {
	Name  string        `json:"name"`
	Types []StorageType `json:"types"`
}

var (
	PolicyHot    = StoragePolicy{Name: "HOT", Types: []StorageType{StorageTypeHDD}}
	PolicyWarm   = StoragePolicy{Name: "WARM", Types: []StorageType{StorageTypeHDD, StorageTypeArchive}}
	PolicyCold   = StoragePolicy{Name: "COLD", Types: []StorageType{StorageTypeArchive}}
	PolicyOneSSD = StoragePolicy{Name: "ONE_SSD", Types: []StorageType{StorageTypeSSD, StorageTypeHDD}}
	PolicyAllSSD = StoragePolicy{Name: "ALL_SSD", Types: []StorageType{StorageTypeSSD}}
)

var builtinPolicies = []StoragePolicy{PolicyHot, PolicyWarm, PolicyCold, PolicyOneSSD, PolicyAllSSD}

// LookupStoragePolicy finds a built-in policy by name (case-insensitive).
// An empty name selects no policy: any storage type is acceptable.
func LookupStoragePolicy(name string) (*StoragePolicy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	for i := range builtinPolicies {
		if strings.EqualFold(builtinPolicies[i].Name, name) {
			p := builtinPolicies[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("unknown storage policy %q", name)
}

// ChooseStorageTypes returns the storage types still needed to reach
// replication replicas, given the types of replicas already chosen.
// A chosen type the policy did not ask for still counts toward replication
// and cancels the last outstanding entry.
func (p *StoragePolicy) ChooseStorageTypes(replication int, chosen []StorageType) []StorageType {
	if p == nil || len(p.Types) == 0 || replication <= 0 {
		return nil
	}
	want := make([]StorageType, replication)
	for i := range want {
		if i < len(p.Types) {
			want[i] = p.Types[i]
		} else {
			want[i] = p.Types[len(p.Types)-1]
		}
	}

	var excess int
	for _, c := range chosen {
		idx := -1
		for i, t := range want {
			if t == c {
				idx = i
				break
			}
		}
		if idx < 0 {
			excess++
			continue
		}
		want = append(want[:idx], want[idx+1:]...)
	}
	if excess >= len(want) {
		return nil
	}
	return want[:len(want)-excess]
}

// Demand builds the storage type demand for placing numReplicas more
// replicas next to the already chosen types.
func (p *StoragePolicy) Demand(numReplicas int, chosen []StorageType) *StorageTypeDemand {
	if p == nil || len(p.Types) == 0 {
		return nil
	}
	need := p.ChooseStorageTypes(numReplicas+len(chosen), chosen)
	if len(need) > numReplicas {
		need = need[:numReplicas]
	}
	for len(need) < numReplicas {
		need = append(need, p.Types[len(p.Types)-1])
	}
	return NewStorageTypeDemand(need...)
}
