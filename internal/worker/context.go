// Package worker is the execution side of the scoring bridge.
//
// A worker owns one provisioned Python runtime and answers protocol messages
// strictly one at a time: init provisions the runtime, score runs the
// generated program for a request.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
)

// Runtime is the interpreter environment a worker drives.
type Runtime interface {
	// Provision installs the interpreter and packages. Packages that are not
	// bundled are resolved against baseURL.
	Provision(ctx context.Context, baseURL string) error

	// Run executes prog and returns its standard output.
	Run(ctx context.Context, prog program.Program) ([]byte, error)
}

// Context holds the per-worker state: the runtime and whether it is provisioned.
type Context struct {
	runtime Runtime
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for worker events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// New creates an execution context around rt.
func New(rt Runtime, opts ...Option) *Context {
	c := &Context{
		runtime: rt,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialized reports whether the runtime has been provisioned.
func (c *Context) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Handle processes one message and returns the reply.
// Handle never panics: a panic while handling becomes an error reply.
func (c *Context) Handle(ctx context.Context, msg domain.Message) (reply domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("worker panic", "type", msg.Type, "panic", r)
			reply = domain.NewErrorMessage(failureKind(msg.Type), fmt.Sprintf("worker panic: %v", r))
		}
		reply.ID = msg.ID
	}()

	switch msg.Type {
	case domain.MessageInit:
		return c.init(ctx, msg.BaseURL)
	case domain.MessageScore:
		return c.score(ctx, msg)
	default:
		return domain.NewErrorMessage("", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func failureKind(t domain.MessageType) domain.ErrorKind {
	if t == domain.MessageInit {
		return domain.KindInitOtherFailure
	}
	return domain.KindEvalWorkerError
}

func (c *Context) init(ctx context.Context, baseURL string) domain.Message {
	if c.initialized {
		return domain.NewInitializedMessage()
	}

	c.logger.Info("provisioning runtime", "base_url", baseURL)
	if err := c.runtime.Provision(ctx, baseURL); err != nil {
		code := domain.KindOf(err)
		if code == "" {
			code = domain.KindInitOtherFailure
		}
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.KindInitTimeout
		}
		c.logger.Error("runtime provisioning failed", "code", code, "err", err)
		return domain.NewErrorMessage(code, fmt.Sprintf("Failed to initialize runtime: %v", err))
	}

	c.initialized = true
	c.logger.Info("runtime ready")
	return domain.NewInitializedMessage()
}

func (c *Context) score(ctx context.Context, msg domain.Message) domain.Message {
	if !c.initialized {
		return domain.NewErrorMessage(domain.KindEvalWorkerError, "runtime not initialized")
	}

	req, err := msg.Request()
	if err != nil {
		return domain.NewErrorMessage(domain.KindSerializationFailure, err.Error())
	}

	prog, err := program.Build(req)
	if err != nil {
		code := domain.KindOf(err)
		if code == "" {
			code = domain.KindEvalWorkerError
		}
		return domain.NewErrorMessage(code, err.Error())
	}

	out, err := c.runtime.Run(ctx, prog)
	if err != nil {
		return domain.NewErrorMessage(domain.KindEvalWorkerError, fmt.Sprintf("Python execution error: %v", err))
	}

	var result domain.ScoringResult
	if err := json.Unmarshal(out, &result); err != nil {
		return domain.NewErrorMessage(domain.KindEvalWorkerError, fmt.Sprintf("malformed scoring output: %v", err))
	}
	if result.ExecutionSteps == nil {
		result.ExecutionSteps = []domain.ExecutionStep{}
	}
	if err := result.Validate(); err != nil {
		return domain.NewErrorMessage(domain.KindEvalWorkerError, err.Error())
	}

	reply, err := domain.NewResultMessage(&result)
	if err != nil {
		return domain.NewErrorMessage(domain.KindSerializationFailure, err.Error())
	}
	c.logger.Debug("scored", "focus_node", result.FocusNode, "widgets", len(result.WidgetScores))
	return reply
}
