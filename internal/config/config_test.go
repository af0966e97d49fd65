package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetward/fleetward/pkg/target"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
addr: ":4506"
database_dsn: "postgres://fleet:fleet@db:5432/fleetward?sslmode=disable"
range_host: "range.internal"
range_port: 8080
maxflight: 100
nodegroups:
  webs: "web* or G@role:frontend"
  staging: "N@webs and G@env:staging"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":4506", cfg.Addr)
	require.Equal(t, "range.internal", cfg.RangeHost)
	require.Equal(t, 8080, cfg.RangePort)
	require.Equal(t, 100, cfg.Maxflight)
	require.Len(t, cfg.Nodegroups, 2)
	require.Equal(t, "N@webs and G@env:staging", cfg.NodegroupTable()["staging"])
}

func TestLoadRejectsBrokenNodegroup(t *testing.T) {
	path := writeConfig(t, `
nodegroups:
  broken: "a and"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, target.ErrSyntax)
	require.Contains(t, err.Error(), "broken")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNodegroupTableIsACopy(t *testing.T) {
	cfg := &Config{Nodegroups: map[string]string{"g": "a"}}
	table := cfg.NodegroupTable()
	table["g"] = "b"
	require.Equal(t, "a", cfg.Nodegroups["g"], "resolver snapshots must not alias config state")
}
