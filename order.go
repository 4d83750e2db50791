package funnel

import "strings"

// OrderStatus is the canonical, provider-independent order state.
type OrderStatus string

const (
	// OrderStatusPending settlement not yet observed
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusCompleted provider confirmed settlement
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusFailed provider reported the payment as failed
	OrderStatusFailed OrderStatus = "FAILED"
	// OrderStatusError local classification: status unknown or the check
	// itself failed. Distinct from the provider's own FAILED.
	OrderStatusError OrderStatus = "ERROR"
)

// IsTerminal reports whether the machine takes further automatic action.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusError
}

func (s OrderStatus) String() string {
	return string(s)
}

// allowedOrderTransitions defines the valid state transitions. The key is the
// current status, the value the set of valid targets. PENDING → PENDING is the
// retry loop; terminal statuses accept only their own value (idempotent
// duplicate observation).
var allowedOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusPending,
		OrderStatusCompleted,
		OrderStatusFailed,
		OrderStatusError,
	},
	OrderStatusCompleted: {OrderStatusCompleted},
	OrderStatusFailed:    {OrderStatusFailed},
	OrderStatusError:     {OrderStatusError},
}

// CanTransition checks if a transition from one status to another is allowed.
func CanTransition(from, to OrderStatus) bool {
	allowed, exists := allowedOrderTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a rich error if the transition is not allowed.
func ValidateTransition(from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}

	if from.IsTerminal() {
		return ErrTerminalOrder.WithMetadata(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
	}

	return ErrInvalidOrderTransition.WithMetadata(map[string]any{
		"from": from.String(),
		"to":   to.String(),
	})
}

// statusVocabulary maps the inconsistent provider vocabularies onto the
// canonical statuses. Lookups are case-insensitive.
var statusVocabulary = map[string]OrderStatus{
	"PENDING":     OrderStatusPending,
	"PROCESSING":  OrderStatusPending,
	"IN_PROGRESS": OrderStatusPending,
	"CREATED":     OrderStatusPending,
	"AWAITING":    OrderStatusPending,

	"COMPLETED":  OrderStatusCompleted,
	"SUCCESS":    OrderStatusCompleted,
	"SUCCESSFUL": OrderStatusCompleted,
	"PAID":       OrderStatusCompleted,
	"CONFIRMED":  OrderStatusCompleted,
	"SETTLED":    OrderStatusCompleted,

	"FAILED":    OrderStatusFailed,
	"FAILURE":   OrderStatusFailed,
	"DECLINED":  OrderStatusFailed,
	"CANCELLED": OrderStatusFailed,
	"CANCELED":  OrderStatusFailed,
	"EXPIRED":   OrderStatusFailed,

	"ERROR": OrderStatusError,
}

// NormalizeOrderStatus maps a raw provider status onto the canonical four
// states. Anything outside the known vocabulary classifies as ERROR: an
// unknown answer is indistinguishable from a broken one.
func NormalizeOrderStatus(raw string) OrderStatus {
	status, ok := statusVocabulary[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return OrderStatusError
	}
	return status
}
