package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no config.yaml is picked up.
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.playhq.com/v1", cfg.PlayHQ.BaseURL)
	assert.Equal(t, 3, cfg.PlayHQ.MaxAttempts)
	assert.Equal(t, 2.0, cfg.PlayHQ.BackoffMultiplier)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 6, cfg.Answer.TopK)
	assert.Equal(t, 1000, cfg.Answer.MaxSnippetTokens)
	assert.Equal(t, 30, cfg.Sync.MatchDayIntervalMins)
	assert.Equal(t, "!csc", cfg.Bridge.CommandPrefix)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := `
club:
  name: Caroline Springs CC
  organisation_id: org-123
playhq:
  api_key: test-key
  tenant: ca
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Caroline Springs CC", cfg.Club.Name)
	assert.Equal(t, "org-123", cfg.Club.OrganisationID)
	assert.Equal(t, "test-key", cfg.PlayHQ.APIKey)
	assert.Equal(t, "ca", cfg.PlayHQ.Tenant)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset keys.
	assert.Equal(t, 60, cfg.PlayHQ.RequestsPerMinute)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
