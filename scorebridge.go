package scorebridge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/adapters/memory"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/persistence"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/aretw0/scorebridge/pkg/saves"
	"github.com/aretw0/scorebridge/pkg/session"
	"github.com/aretw0/scorebridge/pkg/steps"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// ErrNoExamples is returned when the playground has no example library.
var ErrNoExamples = errors.New("no example library configured")

// Playground ties the execution bridge to persisted sessions and their
// stepped results. Safe for concurrent use.
type Playground struct {
	bridge   *bridge.Bridge
	sessions *session.Manager
	saves    *saves.Repository
	examples ports.ExampleSource
	logger   *slog.Logger

	mu        sync.Mutex
	running   map[string]int
	nextSub   int
	listeners map[int]func(*Snapshot)
}

// Option configures a Playground.
type Option func(*Playground)

// WithSessions sets the session manager. Defaults to an in-memory one.
func WithSessions(m *session.Manager) Option {
	return func(p *Playground) {
		p.sessions = m
	}
}

// WithSaves attaches a saved-configuration repository.
func WithSaves(r *saves.Repository) Option {
	return func(p *Playground) {
		p.saves = r
	}
}

// WithExamples attaches an example library.
func WithExamples(src ports.ExampleSource) Option {
	return func(p *Playground) {
		p.examples = src
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Playground) {
		p.logger = logger
	}
}

// New creates a playground around b.
func New(b *bridge.Bridge, opts ...Option) *Playground {
	p := &Playground{
		bridge:    b,
		logger:    logging.NewNop(),
		running:   make(map[string]int),
		listeners: make(map[int]func(*Snapshot)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sessions == nil {
		store := persistence.NewSessionStore(memory.NewStore(), persistence.DefaultSessionPrefix)
		p.sessions = session.NewManager(store, session.WithLogger(p.logger))
	}
	if p.saves == nil {
		p.saves = saves.NewRepository(memory.NewStore(), saves.WithLogger(p.logger))
	}
	return p
}

// Snapshot is a session together with the live evaluation flags.
type Snapshot struct {
	*domain.Session
	Running      bool                  `json:"running"`
	Initializing bool                  `json:"initializing"`
	Step         *domain.ExecutionStep `json:"step,omitempty"`
}

func (p *Playground) snapshot(sess *domain.Session) *Snapshot {
	copied := *sess
	snap := &Snapshot{
		Session:      &copied,
		Running:      p.isRunning(sess.ID),
		Initializing: p.bridge.State() == bridge.StateInitializing,
	}
	if step, ok := steps.FromState(sess.Steps).Current(); ok {
		snap.Step = &step
	}
	return snap
}

// Initialize provisions the runtime ahead of the first evaluation.
func (p *Playground) Initialize(ctx context.Context) error {
	return p.bridge.Initialize(ctx)
}

// RuntimeState reports the bridge phase and the error that failed it, if any.
func (p *Playground) RuntimeState() (bridge.State, error) {
	return p.bridge.State(), p.bridge.LastError()
}

// Evaluate scores req for the session and records the outcome in it. A failed
// evaluation still returns the updated snapshot together with the
// classified error. Invalid requests leave the session untouched.
func (p *Playground) Evaluate(ctx context.Context, sessionID string, req domain.ScoringRequest) (*Snapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var evalErr error
	sess, err := p.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		store := steps.FromState(sess.Steps)
		store.SetCurrentStep(steps.NoStep)

		p.markRunning(sessionID, true)
		p.publish(sess)
		res, err := p.bridge.Evaluate(ctx, req)
		p.markRunning(sessionID, false)

		if err != nil {
			evalErr = err
			store.SetError(err.Error())
			p.logger.Warn("evaluation failed", "session_id", sessionID, "kind", domain.KindOf(err), "err", err)
		} else {
			store.SetResult(res)
			p.logger.Info("evaluation finished", "session_id", sessionID,
				"widgets", len(res.WidgetScores), "steps", res.StepCount())
		}

		request := req
		sess.Request = &request
		sess.Steps = store.State()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record evaluation: %w", err)
	}
	return p.publish(sess), evalErr
}

// Subscribe registers fn to receive every snapshot the playground produces,
// including the one marking an evaluation as running. fn must not block.
func (p *Playground) Subscribe(fn func(*Snapshot)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Playground) publish(sess *domain.Session) *Snapshot {
	snap := p.snapshot(sess)

	p.mu.Lock()
	fns := make([]func(*Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return snap
}

func (p *Playground) markRunning(sessionID string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on {
		p.running[sessionID]++
		return
	}
	if p.running[sessionID]--; p.running[sessionID] <= 0 {
		delete(p.running, sessionID)
	}
}

func (p *Playground) isRunning(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[sessionID] > 0
}

// Session returns the current snapshot of an existing session.
func (p *Playground) Session(ctx context.Context, sessionID string) (*Snapshot, error) {
	sess, err := p.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return p.snapshot(sess), nil
}

// Start returns the session, creating an idle one if needed.
func (p *Playground) Start(ctx context.Context, sessionID string) (*Snapshot, error) {
	sess, err := p.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return p.snapshot(sess), nil
}

// Next advances the session's step cursor.
func (p *Playground) Next(ctx context.Context, sessionID string) (*Snapshot, error) {
	return p.step(ctx, sessionID, func(s *steps.Store) { s.NextStep() })
}

// Previous moves the session's step cursor back.
func (p *Playground) Previous(ctx context.Context, sessionID string) (*Snapshot, error) {
	return p.step(ctx, sessionID, func(s *steps.Store) { s.PreviousStep() })
}

// Seek moves the cursor to i, clamped to the recorded steps.
func (p *Playground) Seek(ctx context.Context, sessionID string, i int) (*Snapshot, error) {
	return p.step(ctx, sessionID, func(s *steps.Store) { s.SetCurrentStep(i) })
}

// Clear drops the session's result or error.
func (p *Playground) Clear(ctx context.Context, sessionID string) (*Snapshot, error) {
	return p.step(ctx, sessionID, func(s *steps.Store) { s.Clear() })
}

func (p *Playground) step(ctx context.Context, sessionID string, fn func(*steps.Store)) (*Snapshot, error) {
	sess, err := p.sessions.Modify(ctx, sessionID, func(sess *domain.Session) error {
		store := steps.FromState(sess.Steps)
		fn(store)
		sess.Steps = store.State()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.publish(sess), nil
}

// DeleteSession removes a session.
func (p *Playground) DeleteSession(ctx context.Context, sessionID string) error {
	return p.sessions.Delete(ctx, sessionID)
}

// Sessions lists the stored session IDs.
func (p *Playground) Sessions(ctx context.Context) ([]string, error) {
	return p.sessions.List(ctx)
}

// Saves returns the saved-configuration repository.
func (p *Playground) Saves() *saves.Repository {
	return p.saves
}

// Examples returns the example library.
func (p *Playground) Examples() (ports.ExampleSource, error) {
	if p.examples == nil {
		return nil, ErrNoExamples
	}
	return p.examples, nil
}

// ExampleRequest builds the scoring request of an example.
func (p *Playground) ExampleRequest(ctx context.Context, id string) (domain.ScoringRequest, error) {
	src, err := p.Examples()
	if err != nil {
		return domain.ScoringRequest{}, err
	}
	ex, err := src.Get(ctx, id)
	if err != nil {
		return domain.ScoringRequest{}, err
	}
	shared, err := src.Shared(ctx)
	if err != nil {
		return domain.ScoringRequest{}, err
	}
	return ex.Request(shared), nil
}

// Close terminates the worker.
func (p *Playground) Close() error {
	return p.bridge.Dispose()
}

// Release returns the trimmed module version.
func Release() string {
	return strings.TrimSpace(Version)
}
