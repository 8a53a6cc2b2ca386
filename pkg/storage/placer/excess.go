// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"sort"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"
)

// ChooseReplicasToDelete picks which of candidates to remove so that
// expected replicas remain. Racks holding several replicas give theirs up
// first, as the policy's PickReplicaSet decides; within the picked group a
// stale node goes first, then the storage with the least free space.
func (p *Placer) ChooseReplicasToDelete(candidates []types.StorageTarget, expected int) []types.StorageTarget {
	if expected < 0 {
		expected = 0
	}

	byRack := make(map[string][]types.StorageTarget)
	for _, c := range candidates {
		byRack[c.Rack] = append(byRack[c.Rack], c)
	}

	var deleted []types.StorageTarget
	for remaining := len(candidates); remaining > expected; remaining-- {
		moreThanOne, exactlyOne := splitByRack(byRack)
		victim := chooseReplicaToDelete(p.policy.PickReplicaSet(moreThanOne, exactlyOne))
		deleted = append(deleted, victim)

		rack := byRack[victim.Rack]
		for i, t := range rack {
			if t.NodeID() == victim.NodeID() && t.Storage == victim.Storage {
				byRack[victim.Rack] = append(rack[:i:i], rack[i+1:]...)
				break
			}
		}
		if len(byRack[victim.Rack]) == 0 {
			delete(byRack, victim.Rack)
		}
	}
	return deleted
}

// splitByRack groups replicas by whether their rack holds more than one.
// Racks are visited in name order so results are stable.
func splitByRack(byRack map[string][]types.StorageTarget) (moreThanOne, exactlyOne []types.StorageTarget) {
	racks := make([]string, 0, len(byRack))
	for r := range byRack {
		racks = append(racks, r)
	}
	sort.Strings(racks)

	for _, r := range racks {
		if len(byRack[r]) > 1 {
			moreThanOne = append(moreThanOne, byRack[r]...)
		} else {
			exactlyOne = append(exactlyOne, byRack[r]...)
		}
	}
	return moreThanOne, exactlyOne
}

func chooseReplicaToDelete(set []types.StorageTarget) types.StorageTarget {
	best := set[0]
	for _, t := range set[1:] {
		if deleteBefore(t, best) {
			best = t
		}
	}
	return best
}

func deleteBefore(a, b types.StorageTarget) bool {
	aStale, bStale := a.Node != nil && a.Node.Stale, b.Node != nil && b.Node.Stale
	if aStale != bStale {
		return aStale
	}
	af, bf := freeBytes(a), freeBytes(b)
	if af != bf {
		return af < bf
	}
	return a.String() < b.String()
}

func freeBytes(t types.StorageTarget) uint64 {
	if t.Storage == nil {
		return 0
	}
	return t.Storage.FreeBytes()
}
