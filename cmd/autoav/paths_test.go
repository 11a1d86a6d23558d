package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("AUTOAV_HOME", home)
	t.Setenv("AUTOAV_CONFIG", "")
	t.Setenv("AUTOAV_DB_PATH", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, home, paths.Home)
	assert.Equal(t, filepath.Join(home, "config.toml"), paths.ConfigPath)
	assert.Equal(t, filepath.Join(home, "sessions.db"), paths.TranscriptPath)
}

func TestResolvePaths_EnvOverrides(t *testing.T) {
	t.Setenv("AUTOAV_HOME", t.TempDir())
	t.Setenv("AUTOAV_CONFIG", "/etc/autoav/config.toml")
	t.Setenv("AUTOAV_DB_PATH", "/var/lib/autoav/sessions.db")

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, "/etc/autoav/config.toml", paths.ConfigPath)
	assert.Equal(t, "/var/lib/autoav/sessions.db", paths.TranscriptPath)
}
