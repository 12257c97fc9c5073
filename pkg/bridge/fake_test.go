package bridge_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
)

// replyFunc decides the worker's answer to a posted message; nil means no answer.
type replyFunc func(msg domain.Message) *domain.Message

type fakeWorker struct {
	reply replyFunc

	mu        sync.Mutex
	next      int
	listeners map[int]func(domain.Message)
	posted    []domain.Message

	terminated atomic.Int32
	doneOnce   sync.Once
	done       chan struct{}
}

func newFakeWorker(reply replyFunc) *fakeWorker {
	return &fakeWorker{
		reply:     reply,
		listeners: map[int]func(domain.Message){},
		done:      make(chan struct{}),
	}
}

func (w *fakeWorker) Post(msg domain.Message) error {
	select {
	case <-w.done:
		return errors.New("worker is not running")
	default:
	}
	w.mu.Lock()
	w.posted = append(w.posted, msg)
	w.mu.Unlock()

	go func() {
		if out := w.reply(msg); out != nil {
			out.ID = msg.ID
			w.emit(*out)
		}
	}()
	return nil
}

func (w *fakeWorker) emit(msg domain.Message) {
	w.mu.Lock()
	fns := make([]func(domain.Message), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (w *fakeWorker) Listen(fn func(domain.Message)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// crash simulates the worker dying on its own.
func (w *fakeWorker) crash() {
	w.doneOnce.Do(func() { close(w.done) })
}

func (w *fakeWorker) Terminate() error {
	w.terminated.Add(1)
	w.crash()
	return nil
}

func (w *fakeWorker) Done() <-chan struct{} { return w.done }

func (w *fakeWorker) listenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

type fakeSpawner struct {
	reply replyFunc
	err   error

	mu      sync.Mutex
	workers []*fakeWorker
}

func (s *fakeSpawner) Spawn(ctx context.Context) (bridge.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, err
	}
	w := newFakeWorker(s.reply)
	s.workers = append(s.workers, w)
	return w, nil
}

func (s *fakeSpawner) spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

func (s *fakeSpawner) last() *fakeWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers[len(s.workers)-1]
}

func initialized() *domain.Message {
	m := domain.NewInitializedMessage()
	return &m
}

func errorReply(code domain.ErrorKind, text string) *domain.Message {
	m := domain.NewErrorMessage(code, text)
	return &m
}

// echoResult answers a score frame with a result naming the request's focus node.
func echoResult(msg domain.Message) *domain.Message {
	req, err := msg.Request()
	if err != nil {
		return errorReply(domain.KindSerializationFailure, err.Error())
	}
	res, err := domain.NewResultMessage(&domain.ScoringResult{
		WidgetScores:   []domain.WidgetScore{},
		ExecutionSteps: []domain.ExecutionStep{},
		FocusNode:      req.FocusNode.String(),
	})
	if err != nil {
		return errorReply(domain.KindSerializationFailure, err.Error())
	}
	return &res
}

// readyThen answers init immediately and delegates score frames to score.
func readyThen(score replyFunc) replyFunc {
	return func(msg domain.Message) *domain.Message {
		if msg.Type == domain.MessageInit {
			return initialized()
		}
		return score(msg)
	}
}

func request(iri string) domain.ScoringRequest {
	return domain.ScoringRequest{
		FocusNode:          domain.NamedTerm(iri),
		WidgetScoringGraph: "# wsg",
		DataGraphShapes:    "# dgs",
		ShapesGraphShapes:  "# sgs",
	}
}
