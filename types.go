package funnel

import (
	"context"
	"fmt"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the leveled logging contract used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider resolves named, scoped loggers so each component logs under
// its own prefix.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// SessionProvider is the external session collaborator. The core consumes
// snapshots; it never owns token storage or the login/signup network calls.
type SessionProvider interface {
	Session(ctx context.Context) (*SessionSnapshot, error)
	Refresh(ctx context.Context) (*SessionSnapshot, error)
	// Logout must be safe to call even when no session is active.
	Logout(ctx context.Context) error
}

// StatusReport is the provider's raw answer to a status query. Status uses
// the provider's own vocabulary and must go through NormalizeOrderStatus.
type StatusReport struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ConfirmReport is the provider's answer to a manual settlement trigger.
type ConfirmReport struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order,omitempty"`
}

// OrderStatusProvider is the external payment provider surface. Manual
// confirmation is a per-provider capability, not a uniform behavior.
type OrderStatusProvider interface {
	OrderStatus(ctx context.Context, id string) (StatusReport, error)
	ConfirmOrder(ctx context.Context, id string) (ConfirmReport, error)
	SupportsManualConfirm() bool
}

// Config holds guard options
type Config interface {
	GetContextKey() string
	GetLoginRoute() string
	GetDashboardRoute() string
	GetPaymentRoute() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] FUNNEL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] FUNNEL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] FUNNEL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] FUNNEL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type providerFromLogger struct {
	logger Logger
}

func (p providerFromLogger) GetLogger(string) Logger { return p.logger }

// ResolveLogger resolves a (provider, logger) pair for the given scope name.
// Explicit loggers win over provider-resolved ones; a nil pair falls back to
// the package default logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger == nil && provider != nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = defaultLogger()
	}

	if provider == nil {
		provider = providerFromLogger{logger: logger}
	}

	return provider, logger
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("funnel"),
		glog.WithAddSource(false),
	)
}
