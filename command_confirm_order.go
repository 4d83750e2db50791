package funnel

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmOrderMessage struct {
	Ref        string `json:"ref" example:"ord_8f31ab" doc:"Provider order reference"`
	OnResponse func(r *ConfirmOrderResponse)
}

func (e ConfirmOrderMessage) Type() string { return "order.confirm" }

type ConfirmOrderResponse struct {
	Found    bool     `json:"found" example:"true" doc:"Has the order been found?"`
	Settled  bool     `json:"settled" example:"true" doc:"Did the order reach COMPLETED?"`
	Status   string   `json:"status" example:"COMPLETED" doc:"Order status after confirmation."`
	Redirect string   `json:"redirect" example:"/dashboard" doc:"Where the customer should land next."`
	Errors   []string `json:"errors" example:"['order already failed']" doc:"Error messages."`
}

// ConfirmOrderHandler settles a confirmed order in one transaction: the order
// moves to COMPLETED and the owning account gets its paid flag. Either both
// writes land or neither does.
type ConfirmOrderHandler struct {
	repo RepositoryManager
}

func NewConfirmOrderHandler(repo RepositoryManager) *ConfirmOrderHandler {
	return &ConfirmOrderHandler{repo: repo}
}

func (h *ConfirmOrderHandler) Execute(ctx context.Context, event ConfirmOrderMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during order confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmOrderHandler) execute(ctx context.Context, event ConfirmOrderMessage) error {
	resp := &ConfirmOrderResponse{}

	if event.Ref == "" {
		return ErrMissingOrderRef
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := h.repo.Orders().GetByRefTx(ctx, tx, event.Ref)
		if err != nil {
			// a missing order is part of the expected flow, not an application error
			if goerrors.IsNotFound(err) {
				resp.Found = false
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve order for confirmation")
		}

		resp.Found = true
		resp.Status = string(order.Status)

		if order.Status == OrderStatusCompleted {
			resp.Settled = true
			resp.Redirect = DefaultRoutes().Dashboard
			return nil
		}

		if order.Status.IsTerminal() {
			resp.Errors = append(resp.Errors, "order already settled as "+string(order.Status))
			return nil
		}

		order, err = h.repo.Orders().MarkCompletedTx(ctx, tx, event.Ref)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not settle order")
		}

		if order.AccountID != nil {
			if err := h.repo.Accounts().MarkPaidTx(ctx, tx, *order.AccountID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not mark account paid")
			}
		}

		resp.Settled = true
		resp.Status = string(order.Status)
		resp.Redirect = DefaultRoutes().Dashboard

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "order confirmation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
