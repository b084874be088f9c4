// Package middleware adapts the session access gate to net/http handlers.
//
// # Guards
//
//   - [Gate] evaluates an [goAuthClient.AccessGate] for every request.
//   - [RequireAuth] accepts any authenticated session.
//   - [RequireRole] additionally requires the token's role claim.
//
// A request made while the session context is still initializing receives 503 with
// Retry-After instead of a redirect, so content never flashes and no premature
// login redirect happens.
//
// # Architecture boundaries
//
// This package translates gate decisions into HTTP responses. It does NOT decide
// access itself; every decision comes from AccessGate.Evaluate.
package middleware
