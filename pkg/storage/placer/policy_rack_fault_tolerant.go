// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"github.com/LeeDigitalWorks/rackplace/pkg/types"
)

// rackFaultTolerantPolicy spreads replicas over as many racks as possible,
// keeping per-rack counts within one of each other when the cluster allows.
type rackFaultTolerantPolicy struct {
	basePolicy
}

func (p *rackFaultTolerantPolicy) Name() string { return PolicyRackFaultTolerant }

func (p *rackFaultTolerantPolicy) MaxNodesPerRack(numChosen, numWanted int) (int, int) {
	wanted, total := p.clampReplicas(numChosen, numWanted)

	// One rack or one replica: nothing to spread.
	numRacks := p.topo.RackCount()
	if numRacks <= 1 || total <= 1 {
		return wanted, total
	}
	if total < numRacks {
		return wanted, 1
	}
	return wanted, (total-1)/numRacks + 1
}

// PlaceReplicas fills every rack to maxPerRack-1 first, then spreads the
// remainder one per rack at maxPerRack. When racks run out of eligible nodes
// it falls back to relaxing the cap until no more progress is possible.
func (p *rackFaultTolerantPolicy) PlaceReplicas(numReplicas, maxPerRack int, pl *Placement) (*types.Node, error) {
	a := p.placeInOrder(numReplicas, maxPerRack, pl)
	return a.writer, a.err()
}

func (p *rackFaultTolerantPolicy) placeInOrder(numReplicas, maxPerRack int, pl *Placement) attempt {
	totalExpected := len(pl.Results) + numReplicas
	numRacks := p.topo.RackCount()
	if numRacks < 1 || totalExpected < numRacks || totalExpected%numRacks == 0 {
		return p.chooseOnce(numReplicas, pl.Writer, pl.Excluded, maxPerRack, pl)
	}

	initial := pl.Excluded.Clone()

	rackCounts := make(map[string]int)
	for _, t := range pl.Results {
		rackCounts[t.Rack]++
	}
	// Replicas already sitting above the maxPerRack-1 fill line
	excess := 0
	for _, c := range rackCounts {
		if c > maxPerRack-1 {
			excess += c - (maxPerRack - 1)
		}
	}
	fill := min(totalExpected-len(pl.Results), (maxPerRack-1)*numRacks-(len(pl.Results)-excess))

	// Nodes passed over under the tighter cap must stay eligible for the
	// second pass, so the first pass works on a copy.
	a := p.chooseOnce(fill, pl.Writer, pl.Excluded.Clone(), maxPerRack-1, pl)
	if a.outcome == outcomeComplete {
		pl.Excluded.AddTargets(pl.Results)
		p.log.Trace().
			Stringer("chosen", targetList(pl.Results)).
			Int("excluded", len(pl.Excluded)).
			Msg("filled racks below cap")

		a = p.chooseOnce(totalExpected-len(pl.Results), a.writer, pl.Excluded, maxPerRack, pl)
		if a.outcome == outcomeComplete {
			return a
		}
	}

	p.log.Warn().
		Int("placed", len(pl.Results)).
		Int("expected", totalExpected).
		Int("max_per_rack", maxPerRack).
		Err(a.reason).
		Msg("Unable to place replicas evenly across racks, falling back to the remaining racks; rack-level fault tolerance may not hold, check the rack configuration")
	placementFallbacks.WithLabelValues(p.Name()).Inc()

	return p.chooseEvenlyFromRemainingRacks(a.writer, initial, maxPerRack, totalExpected, a.reason, pl)
}

// chooseEvenlyFromRemainingRacks raises the per-rack cap one step at a time
// until totalExpected targets are placed or a round places nothing new.
// Each round starts from the call's initial exclusions plus the chosen
// nodes, so nodes rejected under a tighter cap become eligible again.
func (p *rackFaultTolerantPolicy) chooseEvenlyFromRemainingRacks(writer *types.Node, initial ExcludedNodes, maxPerRack, totalExpected int, last *NotEnoughReplicasError, pl *Placement) attempt {
	placedBefore := 0
	bestEffortMaxPerRack := maxPerRack

	for len(pl.Results) != totalExpected && placedBefore != len(pl.Results) {
		fresh := initial.Clone()
		fresh.AddTargets(pl.Results)

		p.log.Trace().
			Stringer("chosen", targetList(pl.Results)).
			Int("excluded", len(pl.Excluded)).
			Int("fresh_excluded", len(fresh)).
			Msg("best effort round")

		placedBefore = len(pl.Results)
		bestEffortMaxPerRack++
		a := p.chooseOnce(totalExpected-len(pl.Results), writer, fresh, bestEffortMaxPerRack, pl)
		if a.outcome == outcomeShort {
			last = a.reason
		}
		pl.Excluded.Merge(fresh)
		bestEffortRounds.WithLabelValues(p.Name()).Inc()
	}

	if len(pl.Results) != totalExpected {
		p.log.Debug().
			Int("expected", totalExpected).
			Int("placed", len(pl.Results)).
			Msg("best effort placement failed")
		return attempt{writer: writer, outcome: outcomeShort, reason: last}
	}
	return attempt{writer: writer}
}

// VerifyPlacement requires one rack per replica
func (p *rackFaultTolerantPolicy) VerifyPlacement(locs []*types.Node, numReplicas int) PlacementStatus {
	return verifyAcrossRacks(p.topo, locs, numReplicas)
}
