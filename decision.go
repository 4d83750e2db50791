package funnel

import (
	"net/url"
	"strings"
)

// DecisionKind tags the outcome of an access evaluation.
type DecisionKind string

const (
	// DecisionAllow render the requested page
	DecisionAllow DecisionKind = "allow"
	// DecisionRedirect navigate to Target instead
	DecisionRedirect DecisionKind = "redirect"
	// DecisionSuspend state unknown, decide nothing yet
	DecisionSuspend DecisionKind = "suspend"
)

// Decision is the engine's verdict for one navigation. Target is set only
// for redirects and is always a same-origin absolute path.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Allow renders the requested page.
func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

// RedirectTo navigates to the given same-origin path.
func RedirectTo(path string) Decision {
	return Decision{Kind: DecisionRedirect, Target: path}
}

// Suspend defers the decision until session state is known.
func Suspend() Decision {
	return Decision{Kind: DecisionSuspend}
}

// Allowed reports whether the page should render.
func (d Decision) Allowed() bool {
	return d.Kind == DecisionAllow
}

// Suspended reports whether the decision is deferred.
func (d Decision) Suspended() bool {
	return d.Kind == DecisionSuspend
}

// Redirects reports whether the decision prescribes navigation.
func (d Decision) Redirects() bool {
	return d.Kind == DecisionRedirect
}

// Engine evaluates the funnel rules. It holds only the route table: Decide
// performs no I/O and calling it twice with identical inputs yields an
// identical Decision.
type Engine struct {
	table  *RouteTable
	routes *Routes
}

// NewEngine returns an engine over the given route table. A nil table uses
// the default layout.
func NewEngine(table *RouteTable) *Engine {
	if table == nil {
		table = NewRouteTable(nil)
	}
	return &Engine{table: table, routes: table.Routes()}
}

// Decide computes the access decision for one navigation. Rules run in funnel
// order, first match wins; any redirect whose target is the current page
// collapses to Allow so redirect targets are stable fixed points.
func (e *Engine) Decide(snap *SessionSnapshot, loc RequestedLocation) Decision {
	if snap == nil || snap.Loading {
		return Suspend()
	}

	class, known := e.table.Classify(loc.Path)
	if !known {
		return collapse(RedirectTo(e.routes.Home), loc)
	}

	var d Decision
	switch class {
	case PageProtected:
		d = e.decideProtected(snap, loc)
	case PageAuth:
		d = e.decideAuth(snap, loc)
	case PageSetup:
		d = e.decideSetup(snap, loc)
	default:
		d = Allow()
	}

	return collapse(d, loc)
}

func (e *Engine) decideProtected(snap *SessionSnapshot, loc RequestedLocation) Decision {
	account := snap.Account
	if account == nil {
		return RedirectTo(e.routes.Login + "?returnTo=" + url.QueryEscape(loc.FullPath()))
	}

	if !account.Verified {
		return RedirectTo(e.routes.Login)
	}

	if !account.Paid {
		return RedirectTo(e.routes.Payment)
	}

	return Allow()
}

func (e *Engine) decideAuth(snap *SessionSnapshot, loc RequestedLocation) Decision {
	account := snap.Account
	if account == nil || !account.Verified {
		// credential pages stay open to anonymous and unverified visitors
		return Allow()
	}

	target := e.routes.Payment
	if account.Paid {
		target = e.routes.Dashboard
		if returnTo, ok := ValidReturnTo(loc.QueryValue("returnTo")); ok {
			target = returnTo
		}
	}

	return RedirectTo(target)
}

func (e *Engine) decideSetup(snap *SessionSnapshot, loc RequestedLocation) Decision {
	account := snap.Account
	if account == nil || !account.Verified {
		return RedirectTo(e.routes.Login)
	}

	if (account.SetupComplete || account.Paid) && !loc.HasFlag("upgrade") {
		return RedirectTo(e.routes.Dashboard)
	}

	// a paid account re-enters deliberately via ?upgrade
	return Allow()
}

// ValidReturnTo accepts only same-origin absolute paths: the value must start
// with a single "/" and carry no scheme, host, or backslash escape. Anything
// else is rejected so a crafted returnTo can never leave the origin.
func ValidReturnTo(value string) (string, bool) {
	if value == "" || value[0] != '/' {
		return "", false
	}
	if strings.HasPrefix(value, "//") {
		return "", false
	}
	if strings.ContainsAny(value, "\\") {
		return "", false
	}
	return value, true
}

// collapse folds a redirect pointing at the current page into Allow,
// preventing redirect loops and duplicate history entries.
func collapse(d Decision, loc RequestedLocation) Decision {
	if d.Kind != DecisionRedirect {
		return d
	}

	if d.Target == loc.Path || d.Target == loc.FullPath() {
		return Allow()
	}

	if target := ParseLocation(d.Target); target.Path == loc.Path && len(target.Query) == 0 {
		return Allow()
	}

	return d
}
