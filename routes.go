package funnel

import (
	"net/url"
	"strings"
)

// PageClass buckets a path into one of the gating areas.
type PageClass string

const (
	// PageProtected requires the full funnel: verified and paid
	PageProtected PageClass = "protected"
	// PageAuth public credential pages (login, signup)
	PageAuth PageClass = "auth"
	// PageSetup payment/setup pages for verified accounts mid-funnel
	PageSetup PageClass = "setup"
	// PageOpen always reachable, independent of session state
	PageOpen PageClass = "open"
)

// Routes holds the well-known paths the engine redirects between.
type Routes struct {
	Home          string
	Login         string
	Signup        string
	Logout        string
	Dashboard     string
	Payment       string
	PaymentReturn string
}

// DefaultRoutes returns the default path layout.
func DefaultRoutes() *Routes {
	return &Routes{
		Home:          "/",
		Login:         "/login",
		Signup:        "/signup",
		Logout:        "/logout",
		Dashboard:     "/dashboard",
		Payment:       "/payment",
		PaymentReturn: "/payment/return",
	}
}

type routeRule struct {
	path  string
	exact bool
	class PageClass
}

// RouteTable classifies request paths. Rules are evaluated in insertion
// order, first match wins, so narrower entries (the payment return endpoint)
// must precede the prefixes that would swallow them.
type RouteTable struct {
	routes *Routes
	rules  []routeRule
}

// NewRouteTable builds the default classification for the given routes.
// Payment-return endpoints are open on purpose: they arrive mid-flow without
// a synchronous session refresh and must stay reachable.
func NewRouteTable(routes *Routes) *RouteTable {
	if routes == nil {
		routes = DefaultRoutes()
	}

	t := &RouteTable{routes: routes}

	t.AddExact(PageOpen, routes.PaymentReturn)
	t.AddExact(PageAuth, routes.Login)
	t.AddExact(PageAuth, routes.Signup)
	t.AddPrefix(PageSetup, routes.Payment)
	t.AddPrefix(PageProtected, routes.Dashboard)
	t.AddExact(PageOpen, routes.Home)
	t.AddPrefix(PageOpen, "/legal")
	t.AddPrefix(PageOpen, "/u/")

	return t
}

// Routes exposes the table's route layout.
func (t *RouteTable) Routes() *Routes {
	return t.routes
}

// AddExact registers a path that matches only itself.
func (t *RouteTable) AddExact(class PageClass, path string) *RouteTable {
	t.rules = append(t.rules, routeRule{path: path, exact: true, class: class})
	return t
}

// AddPrefix registers a path subtree. "/payment" matches "/payment" and
// "/payment/checkout" but not "/payments".
func (t *RouteTable) AddPrefix(class PageClass, path string) *RouteTable {
	t.rules = append(t.rules, routeRule{path: path, class: class})
	return t
}

// Classify returns the page class for a path, or false when the path is
// unmapped and the wildcard rule applies.
func (t *RouteTable) Classify(path string) (PageClass, bool) {
	for _, rule := range t.rules {
		if rule.exact {
			if path == rule.path {
				return rule.class, true
			}
			continue
		}
		if matchPrefix(path, rule.path) {
			return rule.class, true
		}
	}
	return "", false
}

func matchPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}

// RequestedLocation is the path plus query of a navigation request.
type RequestedLocation struct {
	Path  string
	Query url.Values
}

// ParseLocation builds a RequestedLocation from a raw request URL.
func ParseLocation(rawURL string) RequestedLocation {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RequestedLocation{Path: rawURL, Query: url.Values{}}
	}
	return RequestedLocation{Path: parsed.Path, Query: parsed.Query()}
}

// FullPath renders the location as path plus encoded query, the form used
// both for returnTo round-trips and redirect-to-self comparisons. Encoding is
// stable (keys sorted) so identical locations compare equal.
func (l RequestedLocation) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// QueryValue returns the first value for key, or empty.
func (l RequestedLocation) QueryValue(key string) string {
	if l.Query == nil {
		return ""
	}
	return l.Query.Get(key)
}

// HasFlag reports whether the query carries the key at all, regardless of value.
func (l RequestedLocation) HasFlag(key string) bool {
	if l.Query == nil {
		return false
	}
	return l.Query.Has(key)
}
