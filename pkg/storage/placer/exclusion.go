// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/google/uuid"
)

// ExcludedNodes is a set of node IDs that must not be selected. Within one
// placement call it only grows.
type ExcludedNodes map[uuid.UUID]struct{}

// NewExcludedNodes builds a set from node IDs
func NewExcludedNodes(ids ...uuid.UUID) ExcludedNodes {
	ex := make(ExcludedNodes, len(ids))
	for _, id := range ids {
		ex.Add(id)
	}
	return ex
}

// Add inserts id and reports whether it was newly added
func (ex ExcludedNodes) Add(id uuid.UUID) bool {
	if _, ok := ex[id]; ok {
		return false
	}
	ex[id] = struct{}{}
	return true
}

// AddTargets excludes the nodes of every target
func (ex ExcludedNodes) AddTargets(targets []types.StorageTarget) {
	for _, t := range targets {
		ex.Add(t.NodeID())
	}
}

// Contains reports whether id is excluded
func (ex ExcludedNodes) Contains(id uuid.UUID) bool {
	_, ok := ex[id]
	return ok
}

// Merge adds every member of other
func (ex ExcludedNodes) Merge(other ExcludedNodes) {
	for id := range other {
		ex[id] = struct{}{}
	}
}

// Clone returns an independent copy
func (ex ExcludedNodes) Clone() ExcludedNodes {
	cp := make(ExcludedNodes, len(ex))
	cp.Merge(ex)
	return cp
}

// IDs returns the members in no particular order
func (ex ExcludedNodes) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ex))
	for id := range ex {
		out = append(out, id)
	}
	return out
}
