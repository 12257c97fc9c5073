package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scorebridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", false, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.Bridge.InitTimeout)
	assert.Equal(t, 60*time.Second, cfg.Bridge.EvalTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := config.Load(missing, false, nil)
	assert.NoError(t, err, "an implicit config file may be absent")

	_, err = config.Load(missing, true, nil)
	assert.Error(t, err, "an explicit config file must exist")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
log_level: debug
server:
  addr: ":9090"
  cors_origins: [https://playground.example.org]
bridge:
  eval_timeout: 90s
  worker: pipe
runtime:
  packages: [rdflib]
  env:
    PIP_NO_CACHE_DIR: "1"
storage:
  backend: file
  dir: /var/lib/scorebridge
`)
	env := []string{
		"SCOREBRIDGE_BRIDGE_EVAL_TIMEOUT=2m",
		"SCOREBRIDGE_STORAGE_BACKEND=redis",
		"SCOREBRIDGE_STORAGE_REDIS_DB=3",
		"SCOREBRIDGE_SERVER_METRICS=false",
		"SCOREBRIDGE_RUNTIME_PACKAGES=rdflib,pyshacl,owlrl",
		"SCOREBRIDGE_UNKNOWN=ignored",
		"HOME=/root",
	}

	cfg, err := config.Load(path, true, env)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://playground.example.org"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.Metrics)
	assert.Equal(t, 2*time.Minute, cfg.Bridge.EvalTimeout, "env wins over the file")
	assert.Equal(t, 30*time.Second, cfg.Bridge.InitTimeout, "unset keys keep defaults")
	assert.Equal(t, config.WorkerPipe, cfg.Bridge.Worker)
	assert.Equal(t, []string{"rdflib", "pyshacl", "owlrl"}, cfg.Runtime.Packages)
	assert.Equal(t, "1", cfg.Runtime.Environment["PIP_NO_CACHE_DIR"])
	assert.Equal(t, "python3", cfg.Runtime.Interpreter)
	assert.Equal(t, config.StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Storage.RedisDB)
	assert.Equal(t, "/var/lib/scorebridge", cfg.Storage.Dir)
}

func TestLoad_ShorterListReplacesDefault(t *testing.T) {
	path := writeFile(t, "runtime:\n  packages: [rdflib]\n")

	cfg, err := config.Load(path, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rdflib"}, cfg.Runtime.Packages)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		file string
		env  []string
	}{
		"unknown key":    {file: "bridge:\n  eval_timout: 1s\n"},
		"bad duration":   {env: []string{"SCOREBRIDGE_BRIDGE_INIT_TIMEOUT=soon"}},
		"bad backend":    {env: []string{"SCOREBRIDGE_STORAGE_BACKEND=s3"}},
		"bad worker":     {env: []string{"SCOREBRIDGE_BRIDGE_WORKER=thread"}},
		"bad log format": {env: []string{"SCOREBRIDGE_LOG_FORMAT=xml"}},
		"short key":      {env: []string{"SCOREBRIDGE_STORAGE_ENCRYPTION_KEY=abcd"}},
		"malformed yaml": {file: "server: [\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := config.Load(path, path != "", tt.env)
			assert.Error(t, err)
		})
	}
}

func TestStorageKeys(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	b64Key := "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // "0123456789abcdef0123456789abcdef"

	active, fallback, err := config.StorageConfig{
		EncryptionKey: hexKey,
		FallbackKeys:  []string{b64Key},
	}.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	require.Len(t, fallback, 1)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), fallback[0])

	active, fallback, err = config.StorageConfig{}.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)
}
