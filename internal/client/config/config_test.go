package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5000", c.BackendURL)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, "local", c.IdentityMode)
	assert.Equal(t, 5, c.PostLimit)
	assert.Equal(t, 3, c.ProfileFetchAttempts)
	assert.Equal(t, time.Second, c.ProfileRetryBackoff)
	assert.NotEmpty(t, c.DataDir)
	assert.False(t, c.MediaEnabled())
	assert.False(t, c.FederatedEnabled())
}

func TestPaths(t *testing.T) {
	c := Config{DataDir: "/var/fs"}
	assert.Equal(t, filepath.Join("/var/fs", "foodshare.db"), c.DatabasePath())
	assert.Equal(t, filepath.Join("/var/fs", "session.key"), c.KeyPath())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	t.Chdir(t.TempDir())

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Chdir(t.TempDir())

	path := writeTempJSON(t, "", "", map[string]any{
		"backend_url": "http://json:1",
		"log_level":   "debug",
		"post_limit":  7,
	})
	t.Setenv("FOODSHARE_LOG_LEVEL", "warn")
	t.Setenv("FOODSHARE_POST_LIMIT", "9")
	os.Args = []string{"testbin", "-c", path, "-a", "http://flag:2"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag:2", cfg.BackendURL, "flag beats json")
	assert.Equal(t, "warn", cfg.LogLevel, "env beats json")
	assert.Equal(t, 9, cfg.PostLimit)
}
