package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const minimalConfig = `
server:
  listen_addr: "127.0.0.1:8443"
storage:
  principals_path: "/var/lib/easyswan/principals.json"
database:
  path: "/var/lib/easyswan/portal.db"
ca:
  dir: "/var/lib/easyswan/cas"
auth:
  username: "admin"
  password_hash: "$2a$12$abcdefghijklmnopqrstuv"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "file", cfg.Storage.Backend)
	require.Equal(t, 3650, cfg.CA.RootValidityDays)
	require.Equal(t, 365, cfg.CA.DefaultValidityDays)
	require.Equal(t, 3650, cfg.CA.MaxValidityDays)
	require.Equal(t, 10*time.Second, cfg.GetOpTimeout())
	require.Equal(t, 12*time.Hour, cfg.GetSessionTTL())
	require.Equal(t, "EasySwanVPN", cfg.Auth.Issuer)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no listen addr": `
storage:
  principals_path: "/p.json"
database:
  path: "/d.db"
ca:
  dir: "/cas"
auth:
  username: "admin"
  password_hash: "h"
`,
		"bad backend": `
server:
  listen_addr: "127.0.0.1:8443"
storage:
  backend: "postgres"
  principals_path: "/p.json"
database:
  path: "/d.db"
ca:
  dir: "/cas"
auth:
  username: "admin"
  password_hash: "h"
`,
		"bad log level": minimalConfig + `
logging:
  level: "verbose"
`,
	}

	for name, content := range cases {
		_, err := Load(writeConfig(t, content))
		require.Error(t, err, name)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("EASYSWAN_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("EASYSWAN_USERNAME", "operator")
	t.Setenv("EASYSWAN_CA_DIR", "/srv/cas")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	require.Equal(t, "operator", cfg.Auth.Username)
	require.Equal(t, "/srv/cas", cfg.CA.Dir)

	// Untouched values survive the overrides.
	require.Equal(t, "/var/lib/easyswan/portal.db", cfg.Database.Path)
}

func TestValidateMaxBelowDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.CA.MaxValidityDays = 30
	require.Error(t, cfg.Validate())
}
