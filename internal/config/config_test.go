package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, "worksreg.db", cfg.DB.Path)
	require.True(t, cfg.Sweep.Enabled)
	require.Equal(t, "@every 5m", cfg.Sweep.Schedule)
	require.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
transport:
  mode: http
auth:
  default_actor: admin
redis:
  addr: localhost:6379
sweep:
  schedule: "@every 1m"
`), 0o600))

	t.Setenv("WORKSREG_CONFIG_PATH", path)
	t.Setenv("WORKSREG_SERVER_PORT", "9191")
	t.Setenv("WORKSREG_SWEEP_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "admin", cfg.Auth.DefaultActor)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, "@every 1m", cfg.Sweep.Schedule)
	require.False(t, cfg.Sweep.Enabled)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKSREG_DB_PATH=from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("WORKSREG_DB_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-dotenv.db", cfg.DB.Path)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("WORKSREG_SERVER_PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("WORKSREG_SERVER_PORT", "8080")
	t.Setenv("WORKSREG_TRANSPORT", "carrier-pigeon")
	_, err = Load()
	require.Error(t, err)
}

func TestValidate_HTTPWithoutAuthNeedsActor(t *testing.T) {
	cfg := Default()
	cfg.Transport.Mode = "http"
	require.Error(t, cfg.Validate())

	cfg.Auth.Enabled = true
	require.NoError(t, cfg.Validate())
}
