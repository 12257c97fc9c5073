package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/internal/worker"
)

// PipeSpawner runs the worker loop in a goroutine of the current process,
// connected through in-memory pipes. The protocol is the same as for a process.
type PipeSpawner struct {
	NewContext func() *worker.Context
	Logger     *slog.Logger
}

// NewPipeSpawner creates a spawner whose workers drive rt.
func NewPipeSpawner(rt worker.Runtime, opts ...worker.Option) *PipeSpawner {
	return &PipeSpawner{
		NewContext: func() *worker.Context { return worker.New(rt, opts...) },
	}
}

// Spawn starts a worker goroutine.
func (s *PipeSpawner) Spawn(ctx context.Context) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	toWorker, fromBridge := io.Pipe()
	toBridge, fromWorker := io.Pipe()

	serveCtx, cancel := context.WithCancel(context.Background())
	go func() {
		// An abandoned evaluation may keep the goroutine busy after Terminate
		// returns; it exits once the runtime observes serveCtx.
		if err := worker.Serve(serveCtx, toWorker, fromWorker, s.NewContext()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("pipe worker stopped", "err", err)
		}
		_ = fromWorker.Close()
	}()

	stop := func(done <-chan struct{}) error {
		cancel()
		// Unblocks a Serve stuck writing a reply nobody reads.
		_ = toBridge.Close()
		return nil
	}

	return newStreamWorker(fromBridge, toBridge, stop, nil, logger), nil
}
