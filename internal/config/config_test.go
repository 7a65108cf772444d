package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err, "no config file must not be an error")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100.0, cfg.Server.RateLimit)
	assert.Equal(t, "ksy2728/AI-GO", cfg.GitHub.Repo)
	assert.Equal(t, "main", cfg.GitHub.Branch)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Database.URL, "the database source is opt-in")
}

func TestSnapshotBaseURL(t *testing.T) {
	g := GitHubConfig{Repo: "owner/repo", Branch: "main"}
	assert.Equal(t, "https://raw.githubusercontent.com/owner/repo/main/data", g.SnapshotBaseURL())

	g.BaseURL = "http://localhost:9999/data"
	assert.Equal(t, "http://localhost:9999/data", g.SnapshotBaseURL())
}

func TestPreferredSource(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, types.SourceTempData, cfg.PreferredSource())

	cfg.DataSource = "database"
	assert.Equal(t, types.SourceDatabase, cfg.PreferredSource())

	// Unrecognized values pass through; the resolution chain handles them.
	cfg.DataSource = "mongodb"
	assert.Equal(t, types.SourceName("mongodb"), cfg.PreferredSource())
}
