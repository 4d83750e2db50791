package funnel

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// BootstrapGuardOption customizes bootstrap guard construction.
type BootstrapGuardOption func(*BootstrapGuard)

// WithBootstrapLogger overrides the bootstrap logger.
func WithBootstrapLogger(logger Logger) BootstrapGuardOption {
	return func(b *BootstrapGuard) {
		b.provider, b.logger = ResolveLogger("funnel.bootstrap", b.provider, logger)
	}
}

// WithBootstrapActivitySink publishes bootstrap clears to the sink.
func WithBootstrapActivitySink(sink ActivitySink) BootstrapGuardOption {
	return func(b *BootstrapGuard) {
		b.sink = normalizeActivitySink(sink)
	}
}

// BootstrapGuard forces exactly one logout/session-clear before the
// credential-entry page accepts input, so a previously authenticated session
// never leaks into a fresh login attempt. The latch survives re-renders:
// repeated requests never issue a second clear.
type BootstrapGuard struct {
	sessions SessionProvider
	logger   Logger
	provider LoggerProvider
	sink     ActivitySink

	mu       sync.Mutex
	cleared  bool
	inflight bool
}

// NewBootstrapGuard returns a guard bound to the session collaborator.
func NewBootstrapGuard(sessions SessionProvider, opts ...BootstrapGuardOption) *BootstrapGuard {
	provider, logger := ResolveLogger("funnel.bootstrap", nil, nil)

	b := &BootstrapGuard{
		sessions: sessions,
		logger:   logger,
		provider: provider,
		sink:     noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Clear issues the one-shot session clear. Subsequent calls are no-ops once
// the clear succeeded; calls overlapping an in-flight clear get
// ErrBootstrapInFlight. A failed clear re-arms the latch.
func (b *BootstrapGuard) Clear(ctx context.Context) error {
	b.mu.Lock()
	if b.cleared {
		b.mu.Unlock()
		return nil
	}
	if b.inflight {
		b.mu.Unlock()
		return ErrBootstrapInFlight
	}
	b.inflight = true
	b.mu.Unlock()

	err := b.sessions.Logout(ctx)

	b.mu.Lock()
	b.inflight = false
	if err == nil {
		b.cleared = true
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("session bootstrap clear failed", "error", err)
		return err
	}

	if sinkErr := normalizeActivitySink(b.sink).Record(ctx, ActivityEvent{
		EventType: ActivityEventSessionBootstrap,
	}); sinkErr != nil {
		b.logger.Warn("bootstrap activity sink error: %v", sinkErr)
	}

	return nil
}

// Ready reports whether the page may accept submissions.
func (b *BootstrapGuard) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleared
}

// Reset re-arms the latch for a fresh bootstrap (explicit logout or
// re-entry with a blocked flag).
func (b *BootstrapGuard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared = false
}

// Middleware runs the clear before the credential page handles the request.
// While a clear started by another request is still in flight the page
// answers 503 instead of accepting input.
func (b *BootstrapGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if err := b.Clear(c.Context()); err != nil {
				if errors.Is(err, ErrBootstrapInFlight) {
					return c.Status(fiber.StatusServiceUnavailable).SendString("Preparing sign-in, retry shortly.")
				}
				return err
			}
			return next(c)
		}
	}
}
