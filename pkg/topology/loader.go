// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// FileConfig is the on-disk topology description. Any format viper reads
// (yaml, json, toml) is accepted.
type FileConfig struct {
	Racks []RackConfig `mapstructure:"racks"`
}

type RackConfig struct {
	Name  string       `mapstructure:"name"`
	Nodes []NodeConfig `mapstructure:"nodes"`
}

type NodeConfig struct {
	Name     string          `mapstructure:"name"`
	IP       string          `mapstructure:"ip"`
	Stale    bool            `mapstructure:"stale"`
	Storages []StorageConfig `mapstructure:"storages"`
}

// StorageConfig sizes are human readable ("4TiB", "500 GB")
type StorageConfig struct {
	ID       string `mapstructure:"id"`
	Type     string `mapstructure:"type"`
	Capacity string `mapstructure:"capacity"`
	Used     string `mapstructure:"used"`
	ReadOnly bool   `mapstructure:"read_only"`
}

// ValidationError describes one problem in a topology file
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a topology file and builds a Topology from it
func LoadFile(path string) (*Topology, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse topology file: %w", err)
	}
	return Build(cfg)
}

// Build creates a Topology from a parsed description
func Build(cfg FileConfig) (*Topology, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid topology: %s", strings.Join(msgs, "; "))
	}

	topo := New()
	for _, rc := range cfg.Racks {
		for _, nc := range rc.Nodes {
			node, err := nc.toNode(rc.Name)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", nc.Name, err)
			}
			if err := topo.Add(node); err != nil {
				return nil, err
			}
		}
	}
	return topo, nil
}

// Validate checks names and sizes without building anything
func (c FileConfig) Validate() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]struct{})

	if len(c.Racks) == 0 {
		errs = append(errs, ValidationError{Field: "racks", Message: "at least one rack is required"})
	}
	for i, rc := range c.Racks {
		if strings.TrimSpace(rc.Name) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("racks[%d].name", i), Message: "rack name cannot be empty"})
		}
		for j, nc := range rc.Nodes {
			field := fmt.Sprintf("racks[%d].nodes[%d]", i, j)
			if strings.TrimSpace(nc.Name) == "" {
				errs = append(errs, ValidationError{Field: field + ".name", Message: "node name cannot be empty"})
			} else if _, dup := seen[nc.Name]; dup {
				errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate node name %q", nc.Name)})
			}
			seen[nc.Name] = struct{}{}

			if nc.IP != "" && net.ParseIP(nc.IP) == nil {
				errs = append(errs, ValidationError{Field: field + ".ip", Message: fmt.Sprintf("invalid IP %q", nc.IP)})
			}
			for k, sc := range nc.Storages {
				sfield := fmt.Sprintf("%s.storages[%d]", field, k)
				if _, err := types.ParseStorageType(sc.Type); err != nil {
					errs = append(errs, ValidationError{Field: sfield + ".type", Message: err.Error()})
				}
				if _, err := parseSize(sc.Capacity); err != nil {
					errs = append(errs, ValidationError{Field: sfield + ".capacity", Message: err.Error()})
				}
				if _, err := parseSize(sc.Used); err != nil {
					errs = append(errs, ValidationError{Field: sfield + ".used", Message: err.Error()})
				}
			}
		}
	}
	return errs
}

func (nc NodeConfig) toNode(rack string) (*types.Node, error) {
	node := types.NewNode(nc.Name, rack)
	node.Stale = nc.Stale
	if nc.IP != "" {
		node.IP = net.ParseIP(nc.IP)
	}
	for i, sc := range nc.Storages {
		st, err := types.ParseStorageType(sc.Type)
		if err != nil {
			return nil, err
		}
		total, err := parseSize(sc.Capacity)
		if err != nil {
			return nil, err
		}
		used, err := parseSize(sc.Used)
		if err != nil {
			return nil, err
		}
		id := sc.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", nc.Name, st, i)
		}
		node.Storages = append(node.Storages, &types.Storage{
			ID:         id,
			Type:       st,
			TotalBytes: total,
			UsedBytes:  used,
			ReadOnly:   sc.ReadOnly,
		})
	}
	return node, nil
}

func parseSize(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}
