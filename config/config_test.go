/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Router.QueueSize)
	assert.Equal(t, 8000, cfg.Dispatcher.BackPressureThreshold)
	assert.True(t, cfg.Processor.Parallel)
	require.Len(t, cfg.Sources.UDP, 1)
	assert.Equal(t, ":9999", cfg.Sources.UDP[0].Addr)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telepipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  queue_size: 42\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Router.QueueSize)
	assert.Equal(t, 100, cfg.Router.BatchSize) // untouched keys keep their default
}
