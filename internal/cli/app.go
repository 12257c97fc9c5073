// Package cli wires configuration into a ready Playground for the command-line
// front-ends.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/internal/config"
	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/internal/worker"
	"github.com/aretw0/scorebridge/pkg/adapters/file"
	"github.com/aretw0/scorebridge/pkg/adapters/loam"
	"github.com/aretw0/scorebridge/pkg/adapters/memory"
	"github.com/aretw0/scorebridge/pkg/adapters/process"
	"github.com/aretw0/scorebridge/pkg/adapters/redis"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/observability"
	"github.com/aretw0/scorebridge/pkg/persistence"
	"github.com/aretw0/scorebridge/pkg/persistence/middleware"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/aretw0/scorebridge/pkg/saves"
	"github.com/aretw0/scorebridge/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// App is a fully wired playground plus the resources that back it.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Playground *scorebridge.Playground
	Registry   *prometheus.Registry

	closers []io.Closer
}

// Options tune Build for a particular command.
type Options struct {
	// ConfigPath is forwarded to worker processes so they read the same runtime settings.
	ConfigPath string
	// LogWriter defaults to os.Stderr.
	LogWriter io.Writer
	// Spawner overrides the spawner chosen from Config.Bridge.Worker.
	Spawner bridge.Spawner
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.NewWithFormat(w, level, cfg.LogFormat), nil
}

// Build assembles storage, the bridge and the playground from cfg.
func Build(cfg config.Config, opts Options) (*App, error) {
	logger, err := NewLogger(cfg, opts.LogWriter)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	docs, locker, err := app.documentStore()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		// A session stays locked for a whole evaluation, provisioning included.
		ttl := cfg.Storage.LockTTL
		if floor := cfg.Bridge.InitTimeout + cfg.Bridge.EvalTimeout; ttl < floor {
			ttl = floor
		}
		sessionOpts = append(sessionOpts, session.WithLocker(locker), session.WithLockTTL(ttl))
	}
	sessions := session.NewManager(persistence.NewSessionStore(docs, ""), sessionOpts...)

	spawner := opts.Spawner
	if spawner == nil {
		if spawner, err = app.spawner(opts.ConfigPath); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	b := bridge.New(spawner,
		bridge.WithInitTimeout(cfg.Bridge.InitTimeout),
		bridge.WithEvalTimeout(cfg.Bridge.EvalTimeout),
		bridge.WithBaseURL(cfg.Bridge.BaseURL),
		bridge.WithLogger(logger),
		bridge.WithMetrics(observability.NewMetrics(app.Registry)),
	)

	pgOpts := []scorebridge.Option{
		scorebridge.WithLogger(logger),
		scorebridge.WithSessions(sessions),
		scorebridge.WithSaves(saves.NewRepository(docs, saves.WithLogger(logger))),
	}
	if examples := app.examples(); examples != nil {
		pgOpts = append(pgOpts, scorebridge.WithExamples(examples))
	}
	app.Playground = scorebridge.New(b, pgOpts...)
	return app, nil
}

func (a *App) documentStore() (ports.DocumentStore, ports.DistributedLocker, error) {
	cfg := a.Config.Storage

	var (
		docs   ports.DocumentStore
		locker ports.DistributedLocker
	)
	switch cfg.Backend {
	case config.StorageMemory:
		docs = memory.NewStore()
	case config.StorageFile:
		docs = file.New(cfg.Dir)
	case config.StorageRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client)
		docs = redis.NewFromClient(client, redis.WithPrefix(cfg.RedisPrefix), redis.WithTTL(cfg.TTL))
		locker = redis.NewLocker(client, cfg.RedisPrefix)
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		docs = middleware.Chain(docs, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	a.Logger.Debug("storage ready", "backend", cfg.Backend, "encrypted", active != nil)
	return docs, locker, nil
}

func (a *App) spawner(configPath string) (bridge.Spawner, error) {
	cfg := a.Config
	switch cfg.Bridge.Worker {
	case config.WorkerPipe:
		rt := process.NewPythonRuntime(cfg.Runtime, process.WithLogger(a.Logger))
		return bridge.NewPipeSpawner(rt, worker.WithLogger(a.Logger)), nil
	case config.WorkerProcess:
		args := []string{"worker"}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		s, err := bridge.SelfSpawner(args...)
		if err != nil {
			return nil, err
		}
		s.GracePeriod = cfg.Bridge.GracePeriod
		s.Logger = a.Logger
		return s, nil
	default:
		return nil, fmt.Errorf("unknown worker mode %q", cfg.Bridge.Worker)
	}
}

// examples opens the library, or returns nil when it is unavailable.
func (a *App) examples() ports.ExampleSource {
	dir := a.Config.Examples.Dir
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		a.Logger.Warn("example library unavailable", "dir", dir, "err", err)
		return nil
	}
	src, err := loam.Open(dir)
	if err != nil {
		a.Logger.Warn("example library unavailable", "dir", dir, "err", err)
		return nil
	}
	return src
}

// Close stops the worker and releases storage connections.
func (a *App) Close() error {
	var errs []error
	if a.Playground != nil {
		errs = append(errs, a.Playground.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// ServeWorker runs the worker side of the protocol on stdin/stdout until stdin closes.
func ServeWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt := process.NewPythonRuntime(cfg.Runtime, process.WithLogger(logger))
	return worker.Serve(ctx, os.Stdin, os.Stdout, worker.New(rt, worker.WithLogger(logger)))
}
