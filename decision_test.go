package funnel_test

import (
	"testing"

	funnel "github.com/goliatone/go-funnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anonymousSnapshot() *funnel.SessionSnapshot {
	return &funnel.SessionSnapshot{}
}

func unverifiedSnapshot() *funnel.SessionSnapshot {
	return &funnel.SessionSnapshot{Account: &funnel.Account{Email: "pepe@example.com"}}
}

func unpaidSnapshot() *funnel.SessionSnapshot {
	return &funnel.SessionSnapshot{Account: &funnel.Account{
		Email:    "pepe@example.com",
		Verified: true,
	}}
}

func paidSnapshot() *funnel.SessionSnapshot {
	return &funnel.SessionSnapshot{Account: &funnel.Account{
		Email:    "pepe@example.com",
		Verified: true,
		Paid:     true,
	}}
}

func at(rawURL string) funnel.RequestedLocation {
	return funnel.ParseLocation(rawURL)
}

func TestDecideSuspendsWhileSessionLoads(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(&funnel.SessionSnapshot{Loading: true}, at("/dashboard"))
	assert.True(t, d.Suspended())

	d = engine.Decide(nil, at("/dashboard"))
	assert.True(t, d.Suspended())
}

func TestDecideProtectedAreaWalksTheFunnel(t *testing.T) {
	engine := funnel.NewEngine(nil)

	tests := []struct {
		name   string
		snap   *funnel.SessionSnapshot
		target string
		allow  bool
	}{
		{"anonymous goes to login", anonymousSnapshot(), "/login?returnTo=%2Fdashboard", false},
		{"unverified goes to login", unverifiedSnapshot(), "/login", false},
		{"unpaid goes to payment", unpaidSnapshot(), "/payment", false},
		{"paid renders", paidSnapshot(), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.snap, at("/dashboard"))
			if tt.allow {
				assert.True(t, d.Allowed())
				return
			}
			require.True(t, d.Redirects())
			assert.Equal(t, tt.target, d.Target)
		})
	}
}

func TestDecideProtectedPreservesRequestedLocation(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(anonymousSnapshot(), at("/dashboard/reports?week=12"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/login?returnTo=%2Fdashboard%2Freports%3Fweek%3D12", d.Target)
}

func TestDecideAuthPagesBounceSignedInAccounts(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(anonymousSnapshot(), at("/login"))
	assert.True(t, d.Allowed())

	d = engine.Decide(unverifiedSnapshot(), at("/login"))
	assert.True(t, d.Allowed())

	d = engine.Decide(unpaidSnapshot(), at("/login"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/payment", d.Target)

	d = engine.Decide(paidSnapshot(), at("/signup"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/dashboard", d.Target)
}

func TestDecideAuthHonorsReturnToForPaidAccounts(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(paidSnapshot(), at("/login?returnTo=%2Fdashboard%2Freports"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/dashboard/reports", d.Target)

	// unpaid accounts still funnel through payment, whatever returnTo says
	d = engine.Decide(unpaidSnapshot(), at("/login?returnTo=%2Fdashboard"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/payment", d.Target)
}

func TestDecideAuthRejectsForeignReturnTo(t *testing.T) {
	engine := funnel.NewEngine(nil)

	for _, raw := range []string{
		"/login?returnTo=https%3A%2F%2Fevil.test",
		"/login?returnTo=%2F%2Fevil.test",
		"/login?returnTo=%5C%2Fevil.test",
		"/login?returnTo=evil",
	} {
		d := engine.Decide(paidSnapshot(), at(raw))
		require.True(t, d.Redirects(), raw)
		assert.Equal(t, "/dashboard", d.Target, raw)
	}
}

func TestDecideSetupArea(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(anonymousSnapshot(), at("/payment"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/login", d.Target)

	d = engine.Decide(unverifiedSnapshot(), at("/payment"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/login", d.Target)

	d = engine.Decide(unpaidSnapshot(), at("/payment"))
	assert.True(t, d.Allowed())

	d = engine.Decide(paidSnapshot(), at("/payment"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/dashboard", d.Target)

	// deliberate re-entry for an upgrade renders the page
	d = engine.Decide(paidSnapshot(), at("/payment?upgrade"))
	assert.True(t, d.Allowed())
}

func TestDecideSetupCompletedWithoutPaymentStillFunnels(t *testing.T) {
	engine := funnel.NewEngine(nil)

	snap := &funnel.SessionSnapshot{Account: &funnel.Account{
		Email:         "pepe@example.com",
		Verified:      true,
		SetupComplete: true,
	}}

	// setup-complete without a settled payment never unlocks the product
	d := engine.Decide(snap, at("/dashboard"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/payment", d.Target)

	d = engine.Decide(snap, at("/payment"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/dashboard", d.Target)
}

func TestDecideOpenPages(t *testing.T) {
	engine := funnel.NewEngine(nil)

	for _, raw := range []string{"/", "/legal/terms", "/u/pepe", "/payment/return?ref=abc"} {
		for _, snap := range []*funnel.SessionSnapshot{anonymousSnapshot(), unverifiedSnapshot(), unpaidSnapshot(), paidSnapshot()} {
			d := engine.Decide(snap, at(raw))
			assert.True(t, d.Allowed(), raw)
		}
	}
}

func TestDecideUnmappedPathFallsBackToHome(t *testing.T) {
	engine := funnel.NewEngine(nil)

	d := engine.Decide(paidSnapshot(), at("/nowhere"))
	require.True(t, d.Redirects())
	assert.Equal(t, "/", d.Target)

	// already home: the fallback must not loop
	d = engine.Decide(paidSnapshot(), at("/"))
	assert.True(t, d.Allowed())
}

func TestDecideIsIdempotent(t *testing.T) {
	engine := funnel.NewEngine(nil)

	snap := unpaidSnapshot()
	loc := at("/dashboard/reports?week=12")

	first := engine.Decide(snap, loc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.Decide(snap, loc))
	}
}

func TestDecideRedirectTargetsAreFixedPoints(t *testing.T) {
	engine := funnel.NewEngine(nil)

	// every redirect, re-evaluated at its own target, must allow
	snaps := []*funnel.SessionSnapshot{anonymousSnapshot(), unverifiedSnapshot(), unpaidSnapshot(), paidSnapshot()}
	paths := []string{"/", "/login", "/signup", "/dashboard", "/dashboard/reports", "/payment", "/payment/return"}

	for _, snap := range snaps {
		for _, path := range paths {
			d := engine.Decide(snap, at(path))
			if !d.Redirects() {
				continue
			}
			next := engine.Decide(snap, funnel.ParseLocation(d.Target))
			assert.True(t, next.Allowed(), "snap=%s path=%s target=%s", snap.Stage(), path, d.Target)
		}
	}
}

func TestDecideRedirectToCurrentLocationCollapses(t *testing.T) {
	engine := funnel.NewEngine(nil)

	// an unpaid account already on /payment renders it instead of looping
	d := engine.Decide(unpaidSnapshot(), at("/payment"))
	assert.True(t, d.Allowed())

	// same for a paid account on /dashboard
	d = engine.Decide(paidSnapshot(), at("/dashboard"))
	assert.True(t, d.Allowed())
}

func TestValidReturnTo(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"/dashboard", true},
		{"/dashboard/reports?week=12", true},
		{"", false},
		{"dashboard", false},
		{"//evil.test", false},
		{"https://evil.test", false},
		{"/dash\\board", false},
	}

	for _, tt := range tests {
		got, ok := funnel.ValidReturnTo(tt.value)
		assert.Equal(t, tt.ok, ok, tt.value)
		if tt.ok {
			assert.Equal(t, tt.value, got)
		}
	}
}

func TestStageDerivation(t *testing.T) {
	assert.Equal(t, funnel.StageAnonymous, anonymousSnapshot().Stage())
	assert.Equal(t, funnel.StageUnverified, unverifiedSnapshot().Stage())
	assert.Equal(t, funnel.StageUnpaid, unpaidSnapshot().Stage())
	assert.Equal(t, funnel.StageActive, paidSnapshot().Stage())

	// setup completion claims nothing without payment
	snap := &funnel.SessionSnapshot{Account: &funnel.Account{Verified: true, SetupComplete: true}}
	assert.Equal(t, funnel.StageUnpaid, snap.Stage())
}
