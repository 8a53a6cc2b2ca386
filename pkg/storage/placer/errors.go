// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotEnoughReplicas means no eligible target remains under the current
// constraints. Match it with errors.Is.
var ErrNotEnoughReplicas = errors.New("not enough replicas")

// RejectReason says why a candidate node was passed over
type RejectReason string

const (
	ReasonNodeStale           RejectReason = "node is stale"
	ReasonTooManyNodesOnRack  RejectReason = "too many nodes on rack"
	ReasonNotEnoughSpace      RejectReason = "not enough storage space"
	ReasonNoRequiredStorage   RejectReason = "no required storage type"
	ReasonNoCandidates        RejectReason = "no candidates in scope"
	ReasonStorageTypesMissing RejectReason = "all required storage types are unavailable"
)

// NotEnoughReplicasError reports a selection that ended short of its goal
type NotEnoughReplicasError struct {
	Wanted  int
	Chosen  int
	Scope   string
	Reasons map[RejectReason]int
}

func newNotEnoughReplicas(wanted, chosen int, scope string) *NotEnoughReplicasError {
	return &NotEnoughReplicasError{
		Wanted:  wanted,
		Chosen:  chosen,
		Scope:   scope,
		Reasons: make(map[RejectReason]int),
	}
}

func (e *NotEnoughReplicasError) reject(r RejectReason) {
	if e.Reasons == nil {
		e.Reasons = make(map[RejectReason]int)
	}
	e.Reasons[r]++
}

func (e *NotEnoughReplicasError) Error() string {
	scope := e.Scope
	if scope == "" {
		scope = "/"
	}
	msg := fmt.Sprintf("%s: chose %d of %d in scope %s", ErrNotEnoughReplicas, e.Chosen, e.Wanted, scope)
	if len(e.Reasons) == 0 {
		return msg
	}
	reasons := make([]string, 0, len(e.Reasons))
	for r, n := range e.Reasons {
		reasons = append(reasons, fmt.Sprintf("%s=%d", r, n))
	}
	sort.Strings(reasons)
	return msg + " (" + strings.Join(reasons, ", ") + ")"
}

func (e *NotEnoughReplicasError) Unwrap() error {
	return ErrNotEnoughReplicas
}

// asNotEnoughReplicas converts any selector failure into the structured form
func asNotEnoughReplicas(err error, wanted, chosen int) *NotEnoughReplicasError {
	var nere *NotEnoughReplicasError
	if errors.As(err, &nere) {
		return nere
	}
	nere = newNotEnoughReplicas(wanted, chosen, "")
	nere.reject(RejectReason(err.Error()))
	return nere
}
