package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HyperspaceDerived(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10000.0, cfg.Hyperspace.Velocity())
	assert.Equal(t, 5000.0, cfg.Hyperspace.EnterMin())
	assert.Equal(t, 6000.0, cfg.Hyperspace.EnterMax())
	assert.InDelta(t, 0.02, cfg.Sim.MaxStep, 1e-12)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yml")
	data := []byte("sim:\n  fps: 30\ncombat:\n  hostile_threshold: 0.2\nstorage:\n  backend: badger\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Sim.FPS)
	assert.Equal(t, 0.2, cfg.Combat.HostileThreshold)
	assert.Equal(t, 0.3, cfg.Combat.DisabledArmour, "Незаданные поля берутся из Default")
	assert.Equal(t, "badger", cfg.Storage.Backend)
}

func TestLoad_EnvAndErrors(t *testing.T) {
	t.Setenv("PILOTSIM_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: floppy\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestServerPorts_EnvFallback(t *testing.T) {
	var s ServerConfig
	t.Setenv("PILOTSIM_REST_PORT", "9000")
	assert.Equal(t, 9000, s.GetRESTPort())
	assert.Equal(t, 2112, s.GetMetricsPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort())
}
