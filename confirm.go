package funnel

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultPollInterval is the pause between status polls.
	DefaultPollInterval = 5 * time.Second
	// DefaultAttemptBudget is how many polls one confirmation session spends
	// before declaring the order still pending.
	DefaultAttemptBudget = 12
	// DefaultRedirectCountdown is the number of visible countdown ticks
	// between a confirmed payment and the redirect into the product.
	DefaultRedirectCountdown = 5
	// DefaultCountdownTick is the length of one countdown tick.
	DefaultCountdownTick = time.Second
)

// Confirmation is the terminal snapshot of one confirmation session.
type Confirmation struct {
	OrderRef string
	Status   OrderStatus
	// RawStatus is the provider's unnormalized vocabulary, kept for display
	// and debugging.
	RawStatus string
	Message   string
	Attempts  int
	// Refreshed is true when this session performed the one-shot snapshot
	// refresh. Duplicate sessions for the same order observe false.
	Refreshed bool
	// BudgetExhausted marks the "still pending" outcome: not a failure, the
	// order is simply out of this session's patience.
	BudgetExhausted bool
	// Redirect is set after a completed countdown; empty otherwise.
	Redirect string
	// Err carries the classified failure for ERROR outcomes.
	Err error
}

// WaitFunc pauses for d or returns early with the context's error.
type WaitFunc func(ctx context.Context, d time.Duration) error

// ConfirmerOption customizes confirmer construction.
type ConfirmerOption func(*Confirmer)

// WithPollInterval overrides the pause between polls.
func WithPollInterval(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithAttemptBudget overrides how many polls a session may spend.
func WithAttemptBudget(n int) ConfirmerOption {
	return func(c *Confirmer) {
		if n > 0 {
			c.budget = n
		}
	}
}

// WithRedirectCountdown overrides the number of countdown ticks after
// completion. Zero disables the countdown entirely.
func WithRedirectCountdown(ticks int) ConfirmerOption {
	return func(c *Confirmer) {
		if ticks >= 0 {
			c.countdown = ticks
		}
	}
}

// WithCountdownTick overrides the tick length.
func WithCountdownTick(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithCountdownListener observes each countdown tick (remaining count) so a
// host can surface it to the user.
func WithCountdownListener(fn func(remaining int)) ConfirmerOption {
	return func(c *Confirmer) {
		c.onCountdown = fn
	}
}

// WithCompletionRedirect sets the path handed back to the guard after a
// confirmed payment.
func WithCompletionRedirect(path string) ConfirmerOption {
	return func(c *Confirmer) {
		if path != "" {
			c.redirect = path
		}
	}
}

// WithConfirmerClock injects a custom clock (useful for tests).
func WithConfirmerClock(clock func() time.Time) ConfirmerOption {
	return func(c *Confirmer) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithWaitFunc injects the timer primitive (useful for tests).
func WithWaitFunc(wait WaitFunc) ConfirmerOption {
	return func(c *Confirmer) {
		if wait != nil {
			c.wait = wait
		}
	}
}

// WithConfirmerActivitySink sets the ActivitySink used to publish
// confirmation lifecycle events.
func WithConfirmerActivitySink(sink ActivitySink) ConfirmerOption {
	return func(c *Confirmer) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithConfirmerLogger overrides the confirmer logger.
func WithConfirmerLogger(logger Logger) ConfirmerOption {
	return func(c *Confirmer) {
		c.provider, c.logger = ResolveLogger("funnel.confirmer", c.provider, logger)
	}
}

// WithConfirmerLoggerProvider resolves the confirmer logger from a provider.
func WithConfirmerLoggerProvider(provider LoggerProvider) ConfirmerOption {
	return func(c *Confirmer) {
		c.provider, c.logger = ResolveLogger("funnel.confirmer", provider, nil)
	}
}

// Confirmer reconciles pending externally-settled orders with session state.
// One Confirm call is one confirmation session; latches for the one-shot
// refresh and the one-shot manual confirmation are keyed by order reference
// and shared across sessions, so duplicate triggers for the same order stay
// idempotent.
type Confirmer struct {
	statuses OrderStatusProvider
	sessions SessionProvider

	interval    time.Duration
	budget      int
	countdown   int
	tick        time.Duration
	redirect    string
	now         func() time.Time
	wait        WaitFunc
	onCountdown func(remaining int)

	logger   Logger
	provider LoggerProvider
	sink     ActivitySink

	mu             sync.Mutex
	refreshed      map[string]bool
	manualDone     map[string]bool
	manualInFlight map[string]bool
}

// NewConfirmer returns a confirmer over the given provider and session
// collaborator.
func NewConfirmer(statuses OrderStatusProvider, sessions SessionProvider, opts ...ConfirmerOption) *Confirmer {
	provider, logger := ResolveLogger("funnel.confirmer", nil, nil)

	c := &Confirmer{
		statuses:       statuses,
		sessions:       sessions,
		interval:       DefaultPollInterval,
		budget:         DefaultAttemptBudget,
		countdown:      DefaultRedirectCountdown,
		tick:           DefaultCountdownTick,
		redirect:       DefaultRoutes().Dashboard,
		now:            time.Now,
		wait:           waitContext,
		logger:         logger,
		provider:       provider,
		sink:           noopActivitySink{},
		refreshed:      map[string]bool{},
		manualDone:     map[string]bool{},
		manualInFlight: map[string]bool{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Confirm runs one confirmation session for orderRef. All provider and
// transport failures are mapped into an ERROR outcome; the only returned
// error is the context's, when the owner navigated away mid-session. A
// cancelled session applies no further state and emits no further events.
func (c *Confirmer) Confirm(ctx context.Context, orderRef string) (*Confirmation, error) {
	if orderRef == "" {
		res := &Confirmation{
			Status:  OrderStatusError,
			Message: "We could not identify your payment. If you were charged, contact support with your receipt.",
			Err:     ErrMissingOrderRef,
		}
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventOrderStatusChanged,
			ToStatus:  OrderStatusError,
			Metadata:  map[string]any{"reason": "missing order reference"},
		})
		return res, nil
	}

	res := &Confirmation{OrderRef: orderRef, Status: OrderStatusPending}

	for attempt := 1; attempt <= c.budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report, err := c.statuses.OrderStatus(ctx, orderRef)
		// the attempt counter only advances once a response, or its absence,
		// has been observed
		res.Attempts = attempt

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return c.failStatusCheck(ctx, res, err), nil
		}

		res.RawStatus = report.Status

		switch NormalizeOrderStatus(report.Status) {
		case OrderStatusCompleted:
			return c.complete(ctx, res, report)

		case OrderStatusFailed:
			res.Status = OrderStatusFailed
			res.Message = messageOrDefault(report.Message, "Your payment was not completed. No charge should have been made.")
			res.Err = ErrProviderFailure
			c.recordTransition(ctx, res, OrderStatusFailed, nil)
			return res, nil

		case OrderStatusError:
			res.Status = OrderStatusError
			res.Message = "We could not verify your payment status. Please try again shortly."
			res.Err = ErrStatusCheck.WithMetadata(map[string]any{
				"raw_status": report.Status,
			})
			c.recordTransition(ctx, res, OrderStatusError, map[string]any{"raw_status": report.Status})
			return res, nil

		case OrderStatusPending:
			if confirmed, outcome, err := c.maybeManualConfirm(ctx, res); err != nil {
				return nil, err
			} else if confirmed {
				return outcome, nil
			}

			if attempt == c.budget {
				res.BudgetExhausted = true
				res.Message = "Your payment is still being processed. Check back in a few minutes; your order is not lost."
				c.recordActivity(ctx, ActivityEvent{
					EventType: ActivityEventOrderBudgetSpent,
					OrderRef:  orderRef,
					Metadata:  map[string]any{"attempts": attempt},
				})
				return res, nil
			}

			if err := c.wait(ctx, c.interval); err != nil {
				return nil, err
			}
		}
	}

	return res, nil
}

func (c *Confirmer) complete(ctx context.Context, res *Confirmation, report StatusReport) (*Confirmation, error) {
	res.Status = OrderStatusCompleted
	res.Message = messageOrDefault(report.Message, "Payment confirmed.")

	if c.beginRefresh(res.OrderRef) {
		res.Refreshed = true
		if _, err := c.sessions.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// the payment settled either way; the next guard evaluation will
			// re-read the snapshot
			c.logger.Warn("session refresh after completed order failed", "order", res.OrderRef, "error", err)
		} else {
			c.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventSessionRefreshed,
				OrderRef:  res.OrderRef,
			})
		}
	}

	c.recordTransition(ctx, res, OrderStatusCompleted, nil)

	for remaining := c.countdown; remaining > 0; remaining-- {
		if c.onCountdown != nil {
			c.onCountdown(remaining)
		}
		if err := c.wait(ctx, c.tick); err != nil {
			return nil, err
		}
	}

	res.Redirect = c.redirect
	return res, nil
}

// maybeManualConfirm issues the one-shot manual settlement call for providers
// that opt in. Returns confirmed=true when the manual call itself settled the
// order.
func (c *Confirmer) maybeManualConfirm(ctx context.Context, res *Confirmation) (bool, *Confirmation, error) {
	if !c.statuses.SupportsManualConfirm() || !c.beginManualConfirm(res.OrderRef) {
		return false, nil, nil
	}
	defer c.endManualConfirm(res.OrderRef)

	report, err := c.statuses.ConfirmOrder(ctx, res.OrderRef)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil, ctx.Err()
		}
		// manual confirmation is best-effort, the poll loop carries on
		c.logger.Warn("manual order confirmation failed", "order", res.OrderRef, "error", err)
		return false, nil, nil
	}

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventManualConfirm,
		OrderRef:  res.OrderRef,
		Metadata:  map[string]any{"success": report.Success},
	})

	if report.Success && report.Order != nil && NormalizeOrderStatus(report.Order.Status.String()) == OrderStatusCompleted {
		outcome, err := c.complete(ctx, res, StatusReport{Status: report.Order.Status.String(), Message: report.Order.Message})
		if err != nil {
			return false, nil, err
		}
		return true, outcome, nil
	}

	return false, nil, nil
}

func (c *Confirmer) failStatusCheck(ctx context.Context, res *Confirmation, cause error) *Confirmation {
	res.Status = OrderStatusError
	res.Message = "We could not verify your payment status. Please try again shortly."
	res.Err = goerrors.Wrap(cause, goerrors.CategoryOperation, "order status check failed").
		WithTextCode(textCodeStatusCheckFailure)

	c.logger.Error("order status check failed", "order", res.OrderRef, "error", cause)
	c.recordTransition(ctx, res, OrderStatusError, map[string]any{"error": cause.Error()})
	return res
}

func (c *Confirmer) beginRefresh(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshed[ref] {
		return false
	}
	c.refreshed[ref] = true
	return true
}

func (c *Confirmer) beginManualConfirm(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.manualDone[ref] || c.manualInFlight[ref] {
		return false
	}
	c.manualInFlight[ref] = true
	return true
}

func (c *Confirmer) endManualConfirm(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.manualInFlight, ref)
	c.manualDone[ref] = true
}

func (c *Confirmer) recordTransition(ctx context.Context, res *Confirmation, to OrderStatus, metadata map[string]any) {
	c.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventOrderStatusChanged,
		OrderRef:   res.OrderRef,
		FromStatus: OrderStatusPending,
		ToStatus:   to,
		Metadata:   metadata,
	})
}

func (c *Confirmer) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now()
	}

	sink := normalizeActivitySink(c.sink)
	if err := sink.Record(ctx, event); err != nil {
		c.logger.Warn("confirmer activity sink error: %v", err)
	}
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func messageOrDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
