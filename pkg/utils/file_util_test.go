// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("RACKPLACE_TEST_DIR", "/tmp/rackplace")

	assert.Equal(t, "relative/dir", ResolvePath("relative/dir"))
	assert.Equal(t, filepath.Clean("/tmp/rackplace/conf"), ResolvePath("$RACKPLACE_TEST_DIR/conf"))
	assert.True(t, filepath.IsAbs(ResolvePath("~/conf")))
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a, b,,c ,"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
}
