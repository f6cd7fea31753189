package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(kv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := load("", envOf(map[string]string{"NETRCA_DATA_DIR": "/var/lib/netrca"}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/netrca/netrca.db", cfg.Database.DSN)
	assert.Equal(t, "batfish", cfg.Batfish.Host)
	assert.Equal(t, 9996, cfg.Batfish.Port)
	assert.Equal(t, "gns3_network", cfg.Batfish.Network)
	assert.Equal(t, 5*time.Second, cfg.Batfish.HealthTimeout)
	assert.Equal(t, "/data/snapshots", cfg.Snapshot.Root)
	assert.Equal(t, "/data/gns3", cfg.Snapshot.DefaultConfigsRoot)
	assert.Equal(t, "/data/snapshots/.locks", cfg.LockDir())
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "netrca.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: 127.0.0.1:9000
batfish:
  host: bf.internal
  port: 9997
  request_timeout: 90s
snapshot:
  root: /srv/snapshots
  lock_timeout: 1m
auth:
  keys:
    - name: ops
      owner: ops
      hash: $2a$10$abcdefghijklmnopqrstuu
      admin: true
`), 0o644))

	cfg, err := load(path, envOf(map[string]string{
		"BATFISH_HOST":  "override",
		"GNS3_ROOT":     "/opt/gns3",
		"NETRCA_DB_DSN": "/tmp/x.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Address)
	assert.Equal(t, "override", cfg.Batfish.Host)
	assert.Equal(t, 9997, cfg.Batfish.Port)
	assert.Equal(t, 90*time.Second, cfg.Batfish.RequestTimeout)
	assert.Equal(t, "/srv/snapshots", cfg.Snapshot.Root)
	assert.Equal(t, time.Minute, cfg.Snapshot.LockTimeout)
	assert.Equal(t, "/opt/gns3", cfg.Snapshot.DefaultConfigsRoot)
	assert.Equal(t, "/tmp/x.db", cfg.Database.DSN)
	require.Len(t, cfg.Auth.Keys, 1)
	assert.True(t, cfg.Auth.Keys[0].Admin)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad port", env: map[string]string{"BATFISH_PORT": "abc"}},
		{name: "port out of range", env: map[string]string{"BATFISH_PORT": "70000"}},
		{name: "bad driver", env: map[string]string{"NETRCA_DB_DRIVER": "mysql"}},
		{name: "postgres without dsn", env: map[string]string{"NETRCA_DB_DRIVER": "postgres"}},
		{name: "archive without bucket", env: map[string]string{"NETRCA_ARCHIVE_ENABLED": "true", "NETRCA_ARCHIVE_ENDPOINT": "minio:9000"}},
		{name: "bad bool", env: map[string]string{"NETRCA_ARCHIVE_ENABLED": "maybe"}},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := load("", envOf(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
