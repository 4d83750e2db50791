package funnel

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

func RegisterPaymentRoutes[T any](app router.Router[T], opts ...PaymentControllerOption) {

	controller := NewPaymentController(opts...)

	app.
		Get(controller.Routes.Payment,
			controller.PaymentShow,
		).
		SetName("payment.get")

	app.
		Get(controller.Routes.Return,
			controller.PaymentReturn,
		).
		SetName("payment-return.get")
}

type PaymentControllerRoutes struct {
	Payment string
	Return  string
}

type PaymentControllerViews struct {
	Payment   string
	Confirmed string
	Pending   string
	Failed    string
}

type PaymentController struct {
	Debug        bool
	Logger       Logger
	Confirmer    *Confirmer
	Routes       *PaymentControllerRoutes
	Views        *PaymentControllerViews
	ErrorHandler router.ErrorHandler
}

type PaymentControllerOption func(*PaymentController) *PaymentController

func NewPaymentController(opts ...PaymentControllerOption) *PaymentController {
	c := &PaymentController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &PaymentControllerRoutes{
			Payment: "/payment",
			Return:  "/payment/return",
		},
		Views: &PaymentControllerViews{
			Payment:   "payment",
			Confirmed: "payment_confirmed",
			Pending:   "payment_pending",
			Failed:    "payment_failed",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Confirmer == nil {
		panic("Missing Confirmer in payment controller...")
	}

	return c
}

func (p *PaymentController) PaymentShow(ctx router.Context) error {
	return ctx.Render(p.Views.Payment, router.ViewContext{
		"errors": nil,
	})
}

// PaymentReturnPayload is what the processor appends to the return URL.
type PaymentReturnPayload struct {
	Ref     string `query:"ref" json:"ref"`
	OrderID string `query:"order_id" json:"order_id"`
}

// OrderRef prefers ref, falling back to the processor's order_id alias.
func (r PaymentReturnPayload) OrderRef() string {
	if r.Ref != "" {
		return r.Ref
	}
	return r.OrderID
}

// Validate will run validation rules
func (r PaymentReturnPayload) Validate() error {
	if r.Ref == "" && r.OrderID == "" {
		return validation.Errors{
			"ref": errors.New("missing order reference"),
		}
	}

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Ref,
			validation.Length(0, 200),
		),
		validation.Field(
			&r.OrderID,
			validation.Length(0, 200),
		),
	)
}

// PaymentReturn handles the landing back from the external processor: it runs
// the confirmation session to a terminal outcome and renders it.
func (p *PaymentController) PaymentReturn(ctx router.Context) error {
	payload := PaymentReturnPayload{
		Ref:     ctx.Query("ref", ""),
		OrderID: ctx.Query("order_id", ""),
	}

	if err := payload.Validate(); err != nil {
		p.Logger.Error("payment return validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Missing order reference",
		}).Status(fiber.StatusBadRequest).Render(p.Views.Failed, router.ViewContext{
			"errors": map[string]string{"reference": "We could not identify your order."},
		})
	}

	if p.Debug {
		fmt.Println("======= PAYMENT RETURN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	res, err := p.Confirmer.Confirm(ctx.Context(), payload.OrderRef())
	if err != nil {
		// only cancellation surfaces here, terminal outcomes ride on res
		p.Logger.Error("payment confirmation error: ", "error", err)
		return p.ErrorHandler(ctx, err)
	}

	if p.Debug {
		fmt.Println("======= CONFIRMATION ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("===========================")
	}

	switch {
	case res.Status == OrderStatusCompleted:
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": "Payment confirmed",
		}).Render(p.Views.Confirmed, router.ViewContext{
			"order_ref": res.OrderRef,
			"message":   res.Message,
			"redirect":  res.Redirect,
		})

	case res.BudgetExhausted:
		return ctx.Render(p.Views.Pending, router.ViewContext{
			"order_ref": res.OrderRef,
			"message":   res.Message,
			"attempts":  res.Attempts,
		})

	default:
		p.Logger.Error("payment confirmation failed: ", "error", res.Err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  res.Message,
			"system_message": "Payment not confirmed",
		}).Render(p.Views.Failed, router.ViewContext{
			"order_ref": res.OrderRef,
			"message":   res.Message,
			"status":    string(res.Status),
		})
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
