// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlacementStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		current    int
		required   int
		total      int
		satisfied  bool
		additional int
	}{
		{"enough racks", 3, 3, 5, true, 0},
		{"more than required", 4, 3, 5, true, 0},
		{"short", 1, 3, 5, false, 2},
		{"every rack used", 2, 3, 2, true, 0},
		{"single rack", 1, 1, 1, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := NewPlacementStatus(tt.current, tt.required, tt.total)
			assert.Equal(t, tt.satisfied, st.IsSatisfied())
			assert.Equal(t, tt.additional, st.AdditionalReplicasRequired())
		})
	}
}

func TestPlacementStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"block should be additionally replicated on 2 more rack(s); total number of racks in the cluster: 5",
		NewPlacementStatus(1, 3, 5).String())
	assert.Contains(t, NewPlacementStatus(3, 3, 5).String(), "satisfied")
}

func TestPlacementStatus_RacksIsACopy(t *testing.T) {
	t.Parallel()

	st := NewPlacementStatus(2, 2, 2)
	st.racks = []string{"/r1", "/r2"}

	racks := st.Racks()
	racks[0] = "/mutated"
	assert.Equal(t, []string{"/r1", "/r2"}, st.Racks())
}
