// Package funnel gates access to a staged product funnel (anonymous →
// unverified → unpaid → active) and reconciles asynchronously settled
// payments with session state.
//
// Access decisions:
//   - Engine.Decide is a pure function from (SessionSnapshot, RequestedLocation)
//     to a Decision: Allow, RedirectTo, or Suspend. Rule ordering is the
//     funnel; the engine never performs I/O so every rule is unit testable.
//   - NavigationGuard is the effectful shell: router middleware that evaluates
//     the engine on each request and performs at most one replace-style
//     redirect (303 See Other) when the target differs from the current
//     location.
//
// Payment confirmation:
//   - Confirmer owns the lifecycle of one in-flight order: it polls the
//     provider's status endpoint with a bounded attempt budget, normalizes the
//     provider's status vocabulary, and on completion refreshes the session
//     snapshot exactly once before handing control back to the guard.
//     Idempotency latches (single refresh, single manual confirm) survive
//     duplicate triggers for the same order reference.
//
// Bootstrap:
//   - BootstrapGuard clears any stale session exactly once before the
//     credential-entry page accepts new input.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the guard and the
//     confirmer to describe decisions and confirmation transitions. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking navigation.
package funnel
