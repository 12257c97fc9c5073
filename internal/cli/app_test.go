package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/scorebridge/internal/config"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const result = `{"widgetScores":[{"widget":"http://example.org/TextField","score":10}],` +
	`"defaultWidget":"http://example.org/TextField","defaultScore":10,` +
	`"executionSteps":[],"focusNode":"\"true\"^^<http://www.w3.org/2001/XMLSchema#boolean>"}`

type stubRuntime struct{}

func (stubRuntime) Provision(ctx context.Context, baseURL string) error { return nil }

func (stubRuntime) Run(ctx context.Context, prog program.Program) ([]byte, error) {
	return []byte(result), nil
}

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func build(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := Build(cfg, Options{
		Spawner:   bridge.NewPipeSpawner(stubRuntime{}),
		LogWriter: &bytes.Buffer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestBuild_MemoryWithBundledExamples(t *testing.T) {
	cfg := config.Default()
	cfg.Examples.Dir = "../../library"
	app := build(t, cfg)
	ctx := context.Background()

	src, err := app.Playground.Examples()
	require.NoError(t, err)
	list, err := src.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	req, err := app.Playground.ExampleRequest(ctx, "example1")
	require.NoError(t, err)
	snap, err := app.Playground.Evaluate(ctx, "cli", req)
	require.NoError(t, err)
	require.NotNil(t, snap.Steps.Result)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "scorebridge_evaluations_total")
	assert.Contains(t, names, "go_goroutines")
}

func TestBuild_MissingExamplesIsNotFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Examples.Dir = t.TempDir() + "/absent"
	app := build(t, cfg)

	_, err := app.Playground.Examples()
	assert.Error(t, err)
}

func TestBuild_FileStorageEncrypted(t *testing.T) {
	cfg := config.Default()
	cfg.Examples.Dir = ""
	cfg.Storage.Backend = config.StorageFile
	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.EncryptionKey = testKey
	ctx := context.Background()

	app := build(t, cfg)
	_, err := app.Playground.Saves().Create(ctx, "mine", domain.Configuration{
		WidgetScoringGraph: "w",
		DataGraphShapes:    "d",
		ShapesGraphShapes:  "s",
		FocusNode:          domain.NamedTerm("http://example.org/secret"),
	})
	require.NoError(t, err)

	reopened := build(t, cfg)
	list, err := reopened.Playground.Saves().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "http://example.org/secret", list[0].FocusNode.Value())
}

func TestBuild_RedisSessionsAndLocks(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Examples.Dir = ""
	cfg.Storage.Backend = config.StorageRedis
	cfg.Storage.RedisAddr = mr.Addr()
	cfg.Storage.EncryptionKey = testKey
	ctx := context.Background()

	app := build(t, cfg)
	_, err := app.Playground.Start(ctx, "shared")
	require.NoError(t, err)

	keys := mr.Keys()
	var sessionKey string
	for _, k := range keys {
		if strings.HasSuffix(k, "session:shared") {
			sessionKey = k
		}
	}
	require.NotEmpty(t, sessionKey, "keys: %v", keys)
	raw, err := mr.Get(sessionKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "__encrypted__")
	assert.NotContains(t, raw, "currentStep")

	other := build(t, cfg)
	snap, err := other.Playground.Session(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, -1, snap.Steps.CurrentStep)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "debug"

	var buf bytes.Buffer
	logger, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	logger.Debug("hello", "error", "x")
	assert.Contains(t, buf.String(), `"err":"x"`)

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, &buf)
	assert.Error(t, err)
}
