package funnel

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// NavigationGuardOption customizes guard construction.
type NavigationGuardOption func(*NavigationGuard)

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(logger Logger) NavigationGuardOption {
	return func(g *NavigationGuard) {
		g.provider, g.logger = ResolveLogger("funnel.guard", g.provider, logger)
	}
}

// WithGuardLoggerProvider resolves the guard logger from a provider.
func WithGuardLoggerProvider(provider LoggerProvider) NavigationGuardOption {
	return func(g *NavigationGuard) {
		g.provider, g.logger = ResolveLogger("funnel.guard", provider, nil)
	}
}

// WithGuardActivitySink publishes access decisions to the sink.
func WithGuardActivitySink(sink ActivitySink) NavigationGuardOption {
	return func(g *NavigationGuard) {
		g.sink = normalizeActivitySink(sink)
	}
}

// WithSuspendHandler overrides what renders while session state is unknown.
// The default answers 503 with a neutral placeholder body.
func WithSuspendHandler(handler func(router.Context) error) NavigationGuardOption {
	return func(g *NavigationGuard) {
		if handler != nil {
			g.suspend = handler
		}
	}
}

// NavigationGuard is the effectful shell around the decision engine: one
// middleware instance per gated boundary. It computes a Decision per request
// and performs at most one redirect.
type NavigationGuard struct {
	engine   *Engine
	source   SnapshotSource
	logger   Logger
	provider LoggerProvider
	sink     ActivitySink
	suspend  func(router.Context) error
}

// NewNavigationGuard returns a guard that reads snapshots from source and
// evaluates them through engine. A nil engine uses the default route table.
func NewNavigationGuard(engine *Engine, source SnapshotSource, opts ...NavigationGuardOption) *NavigationGuard {
	if engine == nil {
		engine = NewEngine(nil)
	}

	provider, logger := ResolveLogger("funnel.guard", nil, nil)

	g := &NavigationGuard{
		engine:   engine,
		source:   source,
		logger:   logger,
		provider: provider,
		sink:     noopActivitySink{},
		suspend:  defaultSuspendHandler,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Middleware evaluates the funnel on every request passing through it.
func (g *NavigationGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			loc := ParseLocation(c.OriginalURL())
			snapshot := g.source.Snapshot(c)

			decision := g.engine.Decide(snapshot, loc)

			switch {
			case decision.Suspended():
				g.record(c, ActivityEvent{
					EventType: ActivityEventAccessSuspended,
					Path:      loc.Path,
				})
				return g.suspend(c)

			case decision.Redirects():
				// compare against the location at dispatch time so rapid
				// re-evaluations never double-fire
				if decision.Target == loc.FullPath() {
					return next(c)
				}

				g.logger.Debug("funnel redirect", "from", loc.FullPath(), "to", decision.Target)
				g.record(c, ActivityEvent{
					EventType: ActivityEventAccessRedirected,
					Path:      loc.Path,
					Metadata:  map[string]any{"target": decision.Target},
				})

				// 303 replaces the navigation rather than stacking history
				return c.Redirect(decision.Target, router.StatusSeeOther)

			default:
				return next(c)
			}
		}
	}
}

func (g *NavigationGuard) record(c router.Context, event ActivityEvent) {
	if err := normalizeActivitySink(g.sink).Record(c.Context(), event); err != nil {
		g.logger.Warn("guard activity sink error: %v", err)
	}
}

func defaultSuspendHandler(c router.Context) error {
	return c.Status(fiber.StatusServiceUnavailable).SendString("Loading your session…")
}
