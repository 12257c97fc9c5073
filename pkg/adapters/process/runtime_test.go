package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/scorebridge/pkg/adapters/process"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePython is a POSIX shell stand-in for the interpreter. "-m venv DIR"
// copies the script to DIR/bin/python, "-m pip" logs its arguments and "-c"
// echoes stdin.
const fakePython = `#!/bin/sh
if [ "$1" = "-m" ] && [ "$2" = "venv" ]; then
  mkdir -p "$3/bin" && cp "$0" "$3/bin/python" && chmod +x "$3/bin/python"
  exit 0
fi
if [ "$1" = "-m" ] && [ "$2" = "pip" ]; then
  echo "$@" >> "$FAKE_PIP_LOG"
  if [ -n "$FAKE_PIP_FAIL" ]; then
    echo "WARNING: Retrying after connection broken by NewConnectionError" >&2
    echo "$FAKE_PIP_FAIL" >&2
    exit 1
  fi
  exit 0
fi
if [ "$1" = "-c" ]; then
  if [ -n "$FAKE_RUN_SLEEP" ]; then sleep "$FAKE_RUN_SLEEP"; fi
  if [ -n "$FAKE_RUN_FAIL" ]; then echo "Traceback (most recent call last):" >&2; echo "$FAKE_RUN_FAIL" >&2; exit 1; fi
  cat
  exit 0
fi
exit 2
`

func setup(t *testing.T, env map[string]string) (process.RuntimeConfig, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a POSIX shell script")
	}
	dir := t.TempDir()
	interpreter := filepath.Join(dir, "python3")
	require.NoError(t, os.WriteFile(interpreter, []byte(fakePython), 0o755))

	pipLog := filepath.Join(dir, "pip.log")
	cfg := process.DefaultRuntimeConfig()
	cfg.Interpreter = interpreter
	cfg.VenvDir = filepath.Join(dir, "venv")
	cfg.Environment = map[string]string{"FAKE_PIP_LOG": pipLog}
	for k, v := range env {
		cfg.Environment[k] = v
	}
	return cfg, pipLog
}

func TestPythonRuntime_Provision(t *testing.T) {
	cfg, pipLog := setup(t, nil)
	rt := process.NewPythonRuntime(cfg)

	require.NoError(t, rt.Provision(context.Background(), "https://playground.example.org/app/"))
	assert.FileExists(t, rt.Python())

	log, err := os.ReadFile(pipLog)
	require.NoError(t, err)
	assert.Contains(t, string(log), "install")
	assert.Contains(t, string(log), "rdflib pyshacl")
	assert.Contains(t, string(log), "https://playground.example.org/app/"+process.DefaultWheel)

	// A second provisioning reuses the environment.
	require.NoError(t, rt.Provision(context.Background(), ""))
	log, err = os.ReadFile(pipLog)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(log), "install"))
	assert.Contains(t, string(log), " "+process.DefaultWheel)
}

func TestPythonRuntime_ProvisionLocalBase(t *testing.T) {
	cfg, pipLog := setup(t, nil)
	cfg.Packages = nil
	rt := process.NewPythonRuntime(cfg)

	require.NoError(t, rt.Provision(context.Background(), "/srv/assets"))

	log, err := os.ReadFile(pipLog)
	require.NoError(t, err)
	assert.Contains(t, string(log), filepath.Join("/srv/assets", filepath.FromSlash(process.DefaultWheel)))
}

func TestPythonRuntime_SkipInstall(t *testing.T) {
	cfg, pipLog := setup(t, nil)
	cfg.SkipInstall = true
	rt := process.NewPythonRuntime(cfg)

	require.NoError(t, rt.Provision(context.Background(), ""))
	assert.NoFileExists(t, pipLog)
}

func TestPythonRuntime_ProvisionNetworkFailure(t *testing.T) {
	cfg, _ := setup(t, map[string]string{"FAKE_PIP_FAIL": "ERROR: No matching distribution found for rdflib"})
	rt := process.NewPythonRuntime(cfg)

	err := rt.Provision(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrInitNetworkFailure)
	assert.Contains(t, err.Error(), "No matching distribution")
}

func TestPythonRuntime_ProvisionMissingInterpreter(t *testing.T) {
	cfg, _ := setup(t, nil)
	cfg.Interpreter = filepath.Join(t.TempDir(), "no-python")
	rt := process.NewPythonRuntime(cfg)

	err := rt.Provision(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create virtual environment")
	assert.Empty(t, domain.KindOf(err))
}

func TestPythonRuntime_Run(t *testing.T) {
	cfg, _ := setup(t, nil)
	rt := process.NewPythonRuntime(cfg)
	require.NoError(t, rt.Provision(context.Background(), ""))

	out, err := rt.Run(context.Background(), program.Program{Source: "print(1)", Stdin: []byte(`{"ok":true}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))
}

func TestPythonRuntime_RunFailure(t *testing.T) {
	cfg, _ := setup(t, map[string]string{"FAKE_RUN_FAIL": "NameError: name 'score_widgets' is not defined"})
	rt := process.NewPythonRuntime(cfg)
	require.NoError(t, rt.Provision(context.Background(), ""))

	_, err := rt.Run(context.Background(), program.Program{Source: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NameError")

	var execErr *process.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Stderr, "Traceback")
}

func TestPythonRuntime_RunDeadline(t *testing.T) {
	cfg, _ := setup(t, map[string]string{"FAKE_RUN_SLEEP": "5"})
	rt := process.NewPythonRuntime(cfg)
	require.NoError(t, rt.Provision(context.Background(), ""))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := rt.Run(ctx, program.Program{Source: "pass"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
