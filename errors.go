package funnel

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeMissingOrderRef    = "MISSING_ORDER_REFERENCE"
	textCodeProviderFailure    = "PROVIDER_REPORTED_FAILURE"
	textCodeStatusCheckFailure = "ORDER_STATUS_CHECK_FAILED"
	textCodeInvalidTransition  = "INVALID_ORDER_TRANSITION"
	textCodeTerminalOrder      = "TERMINAL_ORDER_STATE"
)

// ErrMissingOrderRef is returned when a payment-return location carries no
// provider transaction identifier. Unrecoverable for that view: there is
// nothing to poll.
var ErrMissingOrderRef = goerrors.New("missing order reference", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingOrderRef).
	WithCode(goerrors.CodeBadRequest)

// ErrProviderFailure marks a payment the provider itself reported as failed.
// Terminal and user-actionable; distinct from transport errors.
var ErrProviderFailure = goerrors.New("payment provider reported failure", goerrors.CategoryOperation).
	WithTextCode(textCodeProviderFailure)

// ErrStatusCheck marks a transport or parse failure while polling. The
// underlying order may still settle; revisiting the return page retries.
var ErrStatusCheck = goerrors.New("order status check failed", goerrors.CategoryOperation).
	WithTextCode(textCodeStatusCheckFailure)

// ErrInvalidOrderTransition is returned when a requested status change is not allowed.
var ErrInvalidOrderTransition = goerrors.New("invalid order state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalOrder is returned when attempting to move away from a terminal order status.
var ErrTerminalOrder = goerrors.New("order state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalOrder).
	WithCode(goerrors.CodeConflict)

// ErrUnableToFindSession is the error when the request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrBootstrapInFlight is returned while the one-shot session clear is still
// running; the login page must not accept submissions yet.
var ErrBootstrapInFlight = errors.New("session bootstrap in flight")
