package funnel

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var markOrderCompletedSQL = `UPDATE "orders" AS "ord"
SET
	"status" = 'COMPLETED',
	"completed_at" = ?,
	"updated_at" = current_timestamp
WHERE
	"ord"."ref" = ?
RETURNING *;`

// Orders is the payment order store.
type Orders interface {
	repository.Repository[*Order]

	GetByRef(ctx context.Context, ref string, criteria ...repository.SelectCriteria) (*Order, error)
	GetByRefTx(ctx context.Context, tx bun.IDB, ref string, criteria ...repository.SelectCriteria) (*Order, error)

	SetStatus(ctx context.Context, ref string, status OrderStatus) (*Order, error)
	SetStatusTx(ctx context.Context, tx bun.IDB, ref string, status OrderStatus) (*Order, error)

	MarkCompleted(ctx context.Context, ref string) (*Order, error)
	MarkCompletedTx(ctx context.Context, tx bun.IDB, ref string) (*Order, error)

	ListPendingForAccount(ctx context.Context, accountID uuid.UUID) ([]*Order, error)
}

type orders struct {
	repository.Repository[*Order]
	db *bun.DB
}

var (
	_ Orders                        = (*orders)(nil)
	_ repository.Repository[*Order] = (*orders)(nil)
)

func NewOrdersRepository(db *bun.DB) Orders {
	repo := repository.NewRepository[*Order](db, repository.ModelHandlers[*Order]{
		NewRecord: func() *Order { return &Order{} },
		GetID: func(o *Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
	})

	return &orders{
		Repository: repo,
		db:         db,
	}
}

func (o *orders) Create(ctx context.Context, record *Order, criteria ...repository.InsertCriteria) (*Order, error) {
	return o.CreateTx(ctx, o.db, record, criteria...)
}

func (o *orders) CreateTx(ctx context.Context, tx bun.IDB, record *Order, criteria ...repository.InsertCriteria) (*Order, error) {
	prepareOrderDefaults(record)
	return o.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (o *orders) GetByRef(ctx context.Context, ref string, criteria ...repository.SelectCriteria) (*Order, error) {
	return o.GetByRefTx(ctx, o.db, ref, criteria...)
}

func (o *orders) GetByRefTx(ctx context.Context, tx bun.IDB, ref string, criteria ...repository.SelectCriteria) (*Order, error) {
	record := &Order{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.ref = ?", strings.TrimSpace(ref)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"ref": ref,
				})
		}
		return nil, err
	}

	record.EnsureStatus()

	return record, nil
}

// SetStatus moves the order along its lifecycle. Illegal moves surface
// ErrInvalidOrderTransition, moves out of a settled order ErrTerminalOrder.
func (o *orders) SetStatus(ctx context.Context, ref string, status OrderStatus) (*Order, error) {
	return o.SetStatusTx(ctx, o.db, ref, status)
}

func (o *orders) SetStatusTx(ctx context.Context, tx bun.IDB, ref string, status OrderStatus) (*Order, error) {
	record, err := o.GetByRefTx(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(record.Status, status); err != nil {
		return nil, err
	}

	if record.Status == status {
		return record, nil
	}

	record.Status = status
	if status == OrderStatusCompleted && record.CompletedAt == nil {
		now := time.Now()
		record.CompletedAt = &now
	}

	return o.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (o *orders) MarkCompleted(ctx context.Context, ref string) (*Order, error) {
	return o.MarkCompletedTx(ctx, o.db, ref)
}

func (o *orders) MarkCompletedTx(ctx context.Context, tx bun.IDB, ref string) (*Order, error) {
	record, err := o.GetByRefTx(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(record.Status, OrderStatusCompleted); err != nil {
		return nil, err
	}

	if record.Status == OrderStatusCompleted {
		return record, nil
	}

	res, err := o.Repository.RawTx(ctx, tx, markOrderCompletedSQL, time.Now(), strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"ref": ref,
			})
	}

	return res[0], nil
}

func (o *orders) ListPendingForAccount(ctx context.Context, accountID uuid.UUID) ([]*Order, error) {
	records := []*Order{}

	err := o.db.NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.status = ?", string(OrderStatusPending)).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareOrderDefaults(record *Order) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.EnsureStatus()
}
