package funnel

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the gated account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Verified      bool           `bun:"is_verified" json:"is_verified,omitempty"`
	Paid          bool           `bun:"is_paid" json:"is_paid,omitempty"`
	SetupComplete bool           `bun:"has_completed_setup" json:"has_completed_setup,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	LoggedOutAt   *time.Time     `bun:"loggedout_at,nullzero" json:"loggedout_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (a *Account) AddMetadata(key string, val any) *Account {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = val
	return a
}

// Order is one externally processed payment, owned by the confirmation state
// machine for the duration of a single confirmation session.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Ref           string      `bun:"ref,notnull,unique" json:"ref,omitempty"`
	AccountID     *uuid.UUID  `bun:"account_id" json:"account_id,omitempty"`
	Account       *Account    `bun:"rel:has-one,join:account_id=id" json:"account,omitempty"`
	Status        OrderStatus `bun:"status,notnull" json:"status,omitempty"`
	Amount        int64       `bun:"amount" json:"amount,omitempty"`
	Currency      string      `bun:"currency" json:"currency,omitempty"`
	CustomerEmail string      `bun:"customer_email" json:"customer_email,omitempty"`
	Message       string      `bun:"message" json:"message,omitempty"`
	CompletedAt   *time.Time  `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value with the initial status.
func (o *Order) EnsureStatus() {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
}

// MarkCompleted stamps the order as settled.
func (o *Order) MarkCompleted(now time.Time) *Order {
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	return o
}
