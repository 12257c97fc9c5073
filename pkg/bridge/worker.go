package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// Worker is a handle on an isolated execution context.
type Worker interface {
	// Post sends one message to the worker.
	Post(msg domain.Message) error

	// Listen registers fn for every message the worker emits from now on.
	// The returned function detaches fn; it is safe to call more than once.
	Listen(fn func(domain.Message)) (cancel func())

	// Terminate stops the worker. It is idempotent.
	Terminate() error

	// Done is closed once the worker's output stream has ended.
	Done() <-chan struct{}
}

// Spawner creates workers. ctx bounds the start-up only, not the worker's lifetime.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context) (Worker, error)

func (f SpawnerFunc) Spawn(ctx context.Context) (Worker, error) { return f(ctx) }

// listenerSet fans messages out to the currently attached listeners.
type listenerSet struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(domain.Message)
}

func (s *listenerSet) add(fn func(domain.Message)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(domain.Message))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *listenerSet) dispatch(msg domain.Message) {
	s.mu.Lock()
	fns := make([]func(domain.Message), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// streamWorker speaks newline-delimited JSON over a pair of streams.
// It backs both the process and the in-process pipe workers.
type streamWorker struct {
	logger *slog.Logger

	in     io.WriteCloser
	outbox chan []byte
	quit   chan struct{}

	listeners listenerSet
	done      chan struct{}

	stop     func(done <-chan struct{}) error // ends the worker once stdin is closed
	reap     func() error                     // waits for it after the stream drained
	stopOnce sync.Once
	stopErr  error
}

func newStreamWorker(in io.WriteCloser, out io.Reader, stop func(<-chan struct{}) error, reap func() error, logger *slog.Logger) *streamWorker {
	w := &streamWorker{
		logger: logger,
		in:     in,
		outbox: make(chan []byte, outboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		stop:   stop,
		reap:   reap,
	}
	go w.read(out)
	go w.write()
	return w
}

// outboxSize bounds the frames waiting for a busy worker to read its stdin.
const outboxSize = 64

// write drains the outbox. Post never blocks on a worker that is busy evaluating.
func (w *streamWorker) write() {
	for {
		select {
		case <-w.quit:
			return
		case frame := <-w.outbox:
			if _, err := w.in.Write(frame); err != nil {
				w.logger.Warn("failed to write to worker", "err", err)
				return
			}
		}
	}
}

// read delivers every inbound frame to the listeners. When the stream breaks
// an error frame without ID is delivered so that pending calls fail.
func (w *streamWorker) read(out io.Reader) {
	defer close(w.done)
	reader := bufio.NewReader(out)

	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var msg domain.Message
			if jsonErr := json.Unmarshal(line, &msg); jsonErr != nil {
				w.logger.Warn("malformed worker frame", "err", jsonErr)
				msg = domain.NewErrorMessage(domain.KindEvalWorkerError, fmt.Sprintf("malformed worker message: %v", jsonErr))
			}
			w.listeners.dispatch(msg)
		}
		if err != nil {
			text := "worker exited"
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				text = fmt.Sprintf("worker stream failed: %v", err)
			}
			w.listeners.dispatch(domain.NewErrorMessage(domain.KindEvalWorkerError, text))
			return
		}
	}
}

func (w *streamWorker) Post(msg domain.Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	frame = append(frame, '\n')

	select {
	case <-w.done:
		return errWorkerStopped
	case <-w.quit:
		return errWorkerStopped
	default:
	}

	select {
	case w.outbox <- frame:
		return nil
	default:
		return errors.New("worker outbox is full")
	}
}

var errWorkerStopped = errors.New("worker is not running")

func (w *streamWorker) Listen(fn func(domain.Message)) func() {
	return w.listeners.add(fn)
}

func (w *streamWorker) Terminate() error {
	w.stopOnce.Do(func() {
		close(w.quit)
		_ = w.in.Close()
		if w.stop != nil {
			w.stopErr = w.stop(w.done)
		}
		<-w.done
		if w.reap != nil {
			if err := w.reap(); err != nil && w.stopErr == nil {
				w.stopErr = err
			}
		}
	})
	return w.stopErr
}

func (w *streamWorker) Done() <-chan struct{} {
	return w.done
}
