package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cfg.KDFTimeCost)
	assert.Equal(t, uint32(64*1024), cfg.KDFMemoryKiB)
	assert.Equal(t, 0.7, cfg.FuzzyMatchThreshold)
	assert.Equal(t, 2*time.Second, cfg.ProbeMinGap)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "khrono.yaml")
	content := "fuzzy_match_threshold: 0.85\nkdf_time_cost: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.FuzzyMatchThreshold)
	assert.Equal(t, uint32(5), cfg.KDFTimeCost)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("KHRONO_FUZZY_MATCH_THRESHOLD", "0.5")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.FuzzyMatchThreshold)
}
