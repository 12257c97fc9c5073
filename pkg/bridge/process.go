package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/aretw0/scorebridge/internal/logging"
)

// DefaultGracePeriod is how long a worker process may take to exit after its
// stdin is closed before it is killed.
const DefaultGracePeriod = 2 * time.Second

// ProcessSpawner runs each worker as a child process speaking the protocol on stdin/stdout.
type ProcessSpawner struct {
	Command     string
	Args        []string
	Env         []string // appended to the parent environment
	Dir         string
	Stderr      io.Writer // worker logs; defaults to os.Stderr
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// NewProcessSpawner creates a spawner for command and args.
func NewProcessSpawner(command string, args ...string) *ProcessSpawner {
	return &ProcessSpawner{Command: command, Args: args}
}

// SelfSpawner re-executes the running binary with the given arguments,
// typically the "worker" subcommand.
func SelfSpawner(args ...string) (*ProcessSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve own executable: %w", err)
	}
	return NewProcessSpawner(exe, args...), nil
}

// Spawn starts the process. The process is not bound to ctx.
func (s *ProcessSpawner) Spawn(ctx context.Context) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	grace := s.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	cmd := exec.Command(s.Command, s.Args...)
	cmd.Dir = s.Dir
	cmd.Env = append(cmd.Environ(), s.Env...)
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %s: %w", s.Command, err)
	}
	logger.Debug("worker process started", "pid", cmd.Process.Pid, "command", s.Command)

	stop := func(done <-chan struct{}) error {
		select {
		case <-done:
			return nil
		case <-time.After(grace):
			logger.Warn("worker did not exit after stdin closed, killing", "pid", cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return fmt.Errorf("failed to kill worker: %w", err)
			}
			return nil
		}
	}
	reap := func() error {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Debug("worker process exited", "pid", cmd.Process.Pid, "status", exitErr.String())
			return nil
		}
		return err
	}

	return newStreamWorker(stdin, stdout, stop, reap, logger), nil
}
