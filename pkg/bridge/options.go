package bridge

import (
	"log/slog"
	"time"

	"github.com/aretw0/scorebridge/pkg/observability"
)

const (
	// DefaultInitTimeout bounds worker provisioning.
	DefaultInitTimeout = 30 * time.Second
	// DefaultEvalTimeout bounds one evaluation round trip.
	DefaultEvalTimeout = 60 * time.Second
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithInitTimeout overrides DefaultInitTimeout.
func WithInitTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.initTimeout = d
		}
	}
}

// WithEvalTimeout overrides DefaultEvalTimeout.
func WithEvalTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.evalTimeout = d
		}
	}
}

// WithBaseURL sets the location workers resolve non-bundled packages against.
func WithBaseURL(url string) Option {
	return func(b *Bridge) {
		b.baseURL = url
	}
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records provisioning and evaluation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}
