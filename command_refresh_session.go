package funnel

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type RefreshSessionMessage struct {
	OnResponse func(r *RefreshSessionResponse)
}

func (e RefreshSessionMessage) Type() string { return "session.refresh" }

type RefreshSessionResponse struct {
	Stage    Stage  `json:"stage" example:"active" doc:"Funnel stage after the refresh."`
	Paid     bool   `json:"paid" example:"true" doc:"Does the session carry the paid entitlement?"`
	Redirect string `json:"redirect" example:"/dashboard" doc:"Default landing for the refreshed stage."`
}

// RefreshSessionHandler re-reads the session so entitlement changes made by a
// settled payment reach the decision engine.
type RefreshSessionHandler struct {
	sessions SessionProvider
	sink     ActivitySink
}

func NewRefreshSessionHandler(sessions SessionProvider, sink ActivitySink) *RefreshSessionHandler {
	return &RefreshSessionHandler{
		sessions: sessions,
		sink:     normalizeActivitySink(sink),
	}
}

func (h *RefreshSessionHandler) Execute(ctx context.Context, event RefreshSessionMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during session refresh")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RefreshSessionHandler) execute(ctx context.Context, event RefreshSessionMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	snapshot, err := h.sessions.Refresh(ctx)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh session")
	}

	_ = h.sink.Record(ctx, ActivityEvent{
		EventType: ActivityEventSessionRefreshed,
	})

	if event.OnResponse != nil {
		resp := &RefreshSessionResponse{
			Stage: snapshot.Stage(),
		}

		if snapshot.Account != nil {
			resp.Paid = snapshot.Account.Paid
		}

		switch resp.Stage {
		case StageActive:
			resp.Redirect = DefaultRoutes().Dashboard
		case StageUnpaid:
			resp.Redirect = DefaultRoutes().Payment
		default:
			resp.Redirect = DefaultRoutes().Login
		}

		event.OnResponse(resp)
	}

	return nil
}
