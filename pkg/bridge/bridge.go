// Package bridge supervises the isolated worker that runs scoring programs.
//
// A Bridge owns at most one worker. Provisioning is shared by concurrent
// callers, evaluations are queued one at a time, and every round trip is
// bounded by a timeout. Replies are matched to requests by message ID, so a
// reply that arrives after its caller gave up is ignored.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/observability"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrDisposed is returned to a provisioning that was overtaken by Dispose.
var ErrDisposed = errors.New("bridge was disposed")

// Bridge is the supervisor side of the execution bridge. Safe for concurrent use.
type Bridge struct {
	spawner     Spawner
	initTimeout time.Duration
	evalTimeout time.Duration
	baseURL     string
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu         sync.Mutex
	state      State
	worker     Worker
	lastErr    error
	generation uint64

	provisioning singleflight.Group
	queue        *semaphore.Weighted
	seq          atomic.Uint64
}

// New creates an uninitialized Bridge. No worker is started until the first
// Initialize or Evaluate.
func New(spawner Spawner, opts ...Option) *Bridge {
	b := &Bridge{
		spawner:     spawner,
		initTimeout: DefaultInitTimeout,
		evalTimeout: DefaultEvalTimeout,
		logger:      logging.NewNop(),
		queue:       semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current lifecycle phase.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LastError returns the error that moved the bridge to StateFailed, if any.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Initialize provisions the worker. It returns immediately when the bridge is
// ready; concurrent callers share one provisioning. ctx only bounds how long
// this caller waits: the provisioning itself is bounded by the init timeout.
func (b *Bridge) Initialize(ctx context.Context) error {
	if b.State() == StateReady {
		return nil
	}

	ch := b.provisioning.DoChan("init", func() (any, error) {
		return nil, b.provision()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) provision() error {
	b.mu.Lock()
	if b.state == StateReady {
		b.mu.Unlock()
		return nil
	}
	b.state = StateInitializing
	b.lastErr = nil
	gen := b.generation
	b.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), b.initTimeout)
	defer cancel()

	b.logger.Info("provisioning worker", "base_url", b.baseURL, "timeout", b.initTimeout)

	w, err := b.spawner.Spawn(ctx)
	if err != nil {
		return b.fail(gen, start, nil, initError(domain.KindInitOtherFailure, err.Error(), err))
	}

	reply, err := b.roundTrip(ctx, w, domain.NewInitMessage(b.baseURL))
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return b.fail(gen, start, w, initError(domain.KindInitTimeout, "", err))
	case err != nil:
		return b.fail(gen, start, w, initError(domain.KindInitOtherFailure, err.Error(), err))
	case reply.Type == domain.MessageError:
		return b.fail(gen, start, w, classifyInit(reply))
	case reply.Type != domain.MessageInitialized:
		return b.fail(gen, start, w, initError(domain.KindInitOtherFailure,
			fmt.Sprintf("unexpected %q reply to init", reply.Type), nil))
	}

	b.mu.Lock()
	if b.generation != gen {
		b.mu.Unlock()
		_ = w.Terminate()
		return ErrDisposed
	}
	b.worker = w
	b.state = StateReady
	b.mu.Unlock()

	go b.watch(w)

	b.metrics.ObserveInitialization(observability.OutcomeOK, time.Since(start))
	b.logger.Info("worker ready", "duration", time.Since(start))
	return nil
}

// fail terminates w and records err unless the bridge was disposed meanwhile.
func (b *Bridge) fail(gen uint64, start time.Time, w Worker, err *domain.Error) error {
	if w != nil {
		_ = w.Terminate()
	}
	b.metrics.ObserveInitialization(string(err.Kind), time.Since(start))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != gen {
		return ErrDisposed
	}
	b.state = StateFailed
	b.lastErr = err
	b.logger.Error("worker provisioning failed", "kind", err.Kind, "err", err)
	return err
}

// watch moves a ready bridge to StateFailed when its worker dies on its own.
func (b *Bridge) watch(w Worker) {
	<-w.Done()

	b.mu.Lock()
	current := b.worker == w
	if current {
		b.worker = nil
		b.state = StateFailed
		b.lastErr = domain.NewError(domain.KindEvalWorkerError, "worker exited unexpectedly", nil)
	}
	b.mu.Unlock()

	if current {
		b.logger.Warn("worker exited unexpectedly")
		_ = w.Terminate()
	}
}

// Evaluate runs one scoring request. It provisions the worker on demand and
// waits for earlier evaluations to finish first.
func (b *Bridge) Evaluate(ctx context.Context, req domain.ScoringRequest) (res *domain.ScoringResult, err error) {
	start := time.Now()
	done := b.metrics.EvaluationStarted()
	defer func() {
		done()
		outcome := observability.OutcomeOK
		if err != nil {
			outcome = string(domain.KindOf(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		b.metrics.ObserveEvaluation(outcome, time.Since(start))
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	msg, err := domain.NewScoreMessage(req)
	if err != nil {
		return nil, err
	}

	if err := b.Initialize(ctx); err != nil {
		return nil, err
	}

	if err := b.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.queue.Release(1)

	b.mu.Lock()
	w := b.worker
	b.mu.Unlock()
	if w == nil {
		return nil, domain.NewError(domain.KindEvalWorkerError, "worker is not available", nil)
	}

	evalCtx, cancel := context.WithTimeout(ctx, b.evalTimeout)
	defer cancel()

	reply, err := b.roundTrip(evalCtx, w, msg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			b.logger.Warn("evaluation timed out", "timeout", b.evalTimeout)
			return nil, domain.NewError(domain.KindEvalTimeout,
				fmt.Sprintf("Scoring timed out after %s", b.evalTimeout), err)
		}
		return nil, domain.NewError(domain.KindEvalWorkerError, err.Error(), err)
	}

	switch reply.Type {
	case domain.MessageResult:
		result, err := reply.Result()
		if err != nil {
			return nil, err
		}
		return result, nil
	case domain.MessageError:
		return nil, classifyEval(reply)
	default:
		return nil, domain.NewError(domain.KindEvalWorkerError,
			fmt.Sprintf("unexpected %q reply to score", reply.Type), nil)
	}
}

// roundTrip posts msg and waits for its reply. Exactly one listener is
// attached for the duration of the call and detached on every return path.
// Frames without an ID (stream failures) are accepted as replies.
func (b *Bridge) roundTrip(ctx context.Context, w Worker, msg domain.Message) (domain.Message, error) {
	msg.ID = strconv.FormatUint(b.seq.Add(1), 10)

	replies := make(chan domain.Message, 1)
	detach := w.Listen(func(reply domain.Message) {
		if reply.ID != "" && reply.ID != msg.ID {
			return
		}
		select {
		case replies <- reply:
		default:
		}
	})
	defer detach()

	if err := w.Post(msg); err != nil {
		return domain.Message{}, err
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// Dispose terminates the worker and returns the bridge to StateUninitialized.
// It is idempotent; the bridge can be initialized again afterwards.
func (b *Bridge) Dispose() error {
	b.mu.Lock()
	w := b.worker
	b.worker = nil
	b.state = StateUninitialized
	b.lastErr = nil
	b.generation++
	b.mu.Unlock()

	if w == nil {
		return nil
	}
	b.logger.Info("disposing worker")
	return w.Terminate()
}
