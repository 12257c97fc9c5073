// Package process provisions and drives a local Python interpreter for the
// scoring worker.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
)

// networkMarkers are pip and urllib messages that mean the network, not the
// environment, is at fault.
var networkMarkers = []string{
	"failed to fetch",
	"failed to establish a new connection",
	"temporary failure in name resolution",
	"name or service not known",
	"could not resolve host",
	"connection refused",
	"network is unreachable",
	"max retries exceeded",
	"connectionerror",
}

// waitDelay bounds how long a cancelled invocation may hold its output pipes
// through grandchildren.
const waitDelay = 500 * time.Millisecond

// PythonRuntime implements worker.Runtime with a virtual environment on disk.
type PythonRuntime struct {
	cfg    RuntimeConfig
	logger *slog.Logger
}

// RuntimeOption configures the runtime.
type RuntimeOption func(*PythonRuntime)

// WithLogger sets the logger for provisioning output.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *PythonRuntime) {
		r.logger = logger
	}
}

// NewPythonRuntime creates a runtime for cfg. Nothing is installed until Provision.
func NewPythonRuntime(cfg RuntimeConfig, opts ...RuntimeOption) *PythonRuntime {
	def := DefaultRuntimeConfig()
	if cfg.Interpreter == "" {
		cfg.Interpreter = def.Interpreter
	}
	if cfg.VenvDir == "" {
		cfg.VenvDir = def.VenvDir
	}
	r := &PythonRuntime{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Python returns the interpreter inside the virtual environment.
func (r *PythonRuntime) Python() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(r.cfg.VenvDir, "Scripts", "python.exe")
	}
	return filepath.Join(r.cfg.VenvDir, "bin", "python")
}

// Provision creates the virtual environment if needed and installs the
// packages and the scoring wheel.
func (r *PythonRuntime) Provision(ctx context.Context, baseURL string) error {
	if _, err := os.Stat(r.Python()); err != nil {
		r.logger.Info("creating virtual environment", "dir", r.cfg.VenvDir)
		if _, err := r.exec(ctx, r.cfg.Interpreter, nil, "-m", "venv", r.cfg.VenvDir); err != nil {
			return fmt.Errorf("failed to create virtual environment: %w", err)
		}
	}
	if r.cfg.SkipInstall {
		return nil
	}

	args := []string{"-m", "pip", "install", "--disable-pip-version-check", "--quiet"}
	if r.cfg.IndexURL != "" {
		args = append(args, "--index-url", r.cfg.IndexURL)
	}
	args = append(args, r.cfg.Packages...)
	if r.cfg.Wheel != "" {
		wheel, err := resolveWheel(baseURL, r.cfg.Wheel)
		if err != nil {
			return err
		}
		args = append(args, wheel)
	}

	r.logger.Info("installing scoring packages", "packages", r.cfg.Packages, "wheel", r.cfg.Wheel)
	if _, err := r.exec(ctx, r.Python(), nil, args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isNetworkFailure(err) {
			return domain.NewError(domain.KindInitNetworkFailure, "Failed to fetch packages: "+err.Error(), err)
		}
		return fmt.Errorf("failed to install packages: %w", err)
	}
	return nil
}

// Run executes prog with the environment's interpreter and returns its stdout.
func (r *PythonRuntime) Run(ctx context.Context, prog program.Program) ([]byte, error) {
	return r.exec(ctx, r.Python(), prog.Stdin, "-c", prog.Source)
}

// exec runs one interpreter invocation. The error carries the tail of stderr.
func (r *PythonRuntime) exec(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	cmd.Env = cmd.Environ()
	for k, v := range r.cfg.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, &ExecError{Err: err, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// ExecError is a failed interpreter invocation.
type ExecError struct {
	Err    error
	Stderr string
}

func (e *ExecError) Error() string {
	if tail := lastLine(e.Stderr); tail != "" {
		return fmt.Sprintf("%v: %s", e.Err, tail)
	}
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// resolveWheel makes a relative wheel location absolute against baseURL.
func resolveWheel(baseURL, wheel string) (string, error) {
	if baseURL == "" || filepath.IsAbs(wheel) || strings.Contains(wheel, "://") {
		return wheel, nil
	}
	if !strings.Contains(baseURL, "://") {
		return filepath.Join(baseURL, filepath.FromSlash(wheel)), nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", domain.NewError(domain.KindInitOtherFailure, fmt.Sprintf("invalid base URL %q", baseURL), err)
	}
	u.Path = path.Join(u.Path, wheel)
	return u.String(), nil
}

func isNetworkFailure(err error) bool {
	text := err.Error()
	var execErr *ExecError
	if errors.As(err, &execErr) {
		text = execErr.Stderr
	}
	text = strings.ToLower(text)
	for _, marker := range networkMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
