package funnel

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccessRedirected   ActivityEventType = "funnel.access.redirected"
	ActivityEventAccessSuspended    ActivityEventType = "funnel.access.suspended"
	ActivityEventOrderStatusChanged ActivityEventType = "funnel.order.status.changed"
	ActivityEventOrderBudgetSpent   ActivityEventType = "funnel.order.budget.spent"
	ActivityEventManualConfirm      ActivityEventType = "funnel.order.manual.confirm"
	ActivityEventSessionRefreshed   ActivityEventType = "funnel.session.refreshed"
	ActivityEventSessionBootstrap   ActivityEventType = "funnel.session.bootstrap"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	OrderRef   string
	Path       string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
