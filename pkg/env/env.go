// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
	Testing    = "testing"
)

var (
	Env string

	once sync.Once
)

// Current returns the deployment environment from RACKPLACE_ENV, then the
// "env" config key, defaulting to local. It is resolved once.
func Current() string {
	once.Do(func() {
		Env = strings.ToLower(strings.TrimSpace(os.Getenv("RACKPLACE_ENV")))
		if Env == "" {
			Env = strings.ToLower(viper.GetString("env"))
		}
		if Env == "" {
			Env = Local
		}
	})
	return Env
}

func IsLocal() bool {
	return Current() == Local
}

func IsProduction() bool {
	return Current() == Production
}

func IsTesting() bool {
	return Current() == Testing
}
