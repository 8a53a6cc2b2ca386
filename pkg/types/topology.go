// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"net"
	"strings"

	"github.com/google/uuid"
)

// DefaultRack is the network location assigned to nodes registered without one
const DefaultRack = "/default-rack"

// nodeNamespace scopes deterministic node IDs derived from node names
var nodeNamespace = uuid.MustParse("6f1c8d1e-3b0a-4f59-9a52-5c3e0b8f2d71")

// Rack groups the nodes that share a failure domain
type Rack struct {
	Name    string
	NodeIDs []uuid.UUID
}

// Node is a leaf of the cluster topology. Nodes are treated as immutable once
// registered; updates replace the whole value.
type Node struct {
	NodeID uuid.UUID
	Name   string
	// Rack is the node's network location, e.g. "/dc1/rack3"
	Rack     string
	IP       net.IP
	Storages []*Storage
	// Stale is set when the node has missed heartbeats
	Stale bool
}

// NodeIDFromName returns the stable ID used for a node name
func NodeIDFromName(name string) uuid.UUID {
	return uuid.NewSHA1(nodeNamespace, []byte(name))
}

// NewNode creates a node with an ID derived from its name
func NewNode(name, rack string, storages ...*Storage) *Node {
	return &Node{
		NodeID:   NodeIDFromName(name),
		Name:     name,
		Rack:     NormalizeNetworkLocation(rack),
		Storages: storages,
	}
}

// NormalizeNetworkLocation cleans a rack path so that equal locations compare
// equal as strings.
func NormalizeNetworkLocation(loc string) string {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return DefaultRack
	}
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}
	for len(loc) > 1 && strings.HasSuffix(loc, "/") {
		loc = strings.TrimSuffix(loc, "/")
	}
	return loc
}

// StorageFor returns the first writable storage of type t that can hold a
// block of blockSize bytes.
func (n *Node) StorageFor(t StorageType, blockSize uint64) (*Storage, bool) {
	for _, s := range n.Storages {
		if s.Type != t {
			continue
		}
		if s.CanHold(blockSize) {
			return s, true
		}
	}
	return nil, false
}

// AnyStorage returns the writable storage with the most free space that can
// hold a block of blockSize bytes.
func (n *Node) AnyStorage(blockSize uint64) (*Storage, bool) {
	var best *Storage
	for _, s := range n.Storages {
		if !s.CanHold(blockSize) {
			continue
		}
		if best == nil || s.FreeBytes() > best.FreeBytes() {
			best = s
		}
	}
	return best, best != nil
}

// HasStorageType reports whether the node has any storage of type t,
// regardless of free space.
func (n *Node) HasStorageType(t StorageType) bool {
	for _, s := range n.Storages {
		if s.Type == t {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Rack + "/" + n.Name
}
