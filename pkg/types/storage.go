// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"
)

// StorageType describes the physical medium of a storage slot on a node
type StorageType string

const (
	StorageTypeHDD     StorageType = "hdd"
	StorageTypeSSD     StorageType = "ssd"
	StorageTypeNVMe    StorageType = "nvme"
	StorageTypeArchive StorageType = "archive"
)

// ParseStorageType parses a storage type name, case-insensitively
func ParseStorageType(s string) (StorageType, error) {
	switch t := StorageType(strings.ToLower(strings.TrimSpace(s))); t {
	case StorageTypeHDD, StorageTypeSSD, StorageTypeNVMe, StorageTypeArchive:
		return t, nil
	case "":
		return StorageTypeHDD, nil
	default:
		return "", fmt.Errorf("unknown storage type %q", s)
	}
}

// Storage is one storage slot (disk, volume) on a node.
// This is the unit a replica is placed on.
type Storage struct {
	ID         string      `json:"id"`
	Type       StorageType `json:"type"`
	TotalBytes uint64      `json:"total_bytes"`
	UsedBytes  uint64      `json:"used_bytes"`
	ReadOnly   bool        `json:"read_only"`
}

// FreeBytes returns available capacity
func (s *Storage) FreeBytes() uint64 {
	if s.UsedBytes >= s.TotalBytes {
		return 0
	}
	return s.TotalBytes - s.UsedBytes
}

// UsagePercent returns capacity usage as percentage (0-100)
func (s *Storage) UsagePercent() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

// CanHold reports whether a block of blockSize bytes can be written here
func (s *Storage) CanHold(blockSize uint64) bool {
	return !s.ReadOnly && s.FreeBytes() >= blockSize
}
