package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogrut/rtreed/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, *cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtreed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\nsplit_mode: greene\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "greene", cfg.SplitMode)
	assert.Equal(t, config.DefaultConfig.MaxNodeReferences, cfg.MaxNodeReferences)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [this is not valid"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadSplitMode(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.SplitMode = "bogus"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidArgument)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Port = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidArgument)
}

func TestValidateRejectsZeroMaxNodeReferences(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.MaxNodeReferences = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidArgument)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := config.DefaultConfig
	assert.NoError(t, cfg.Validate())
}
