// Package goAuthClient manages the client side of an authenticated session: the
// persisted session token, the process-wide session state, credential injection on
// outbound HTTP requests, and route-level access decisions.
//
// The package is built around five collaborators:
//
//   - [SessionStore] owns the persisted record (token + cached profile) and is its only
//     writer.
//   - [SessionContext] is the read-mostly facade the rest of an application consults;
//     it funnels every mutation through [SessionContext.Login] and
//     [SessionContext.Logout] and broadcasts transitions to subscribers.
//   - [Authenticator] is an ordered http.RoundTripper pipeline that attaches the bearer
//     credential and forces logout when the backend reports the session invalid.
//   - [AccessGate] is a pure function from session state and a required role to a
//     render or redirect decision.
//   - Package oauth completes redirect- and popup-mode identity provider flows.
//
// # Architecture boundaries
//
// Token signatures are never verified here; the issuing backend does that. Tokens are
// only inspected structurally and for expiry (package token).
//
// # What this package must NOT do
//
//   - Write the persisted record outside [SessionStore].
//   - Attach a token that failed the structural check or is past its exp claim.
//   - Let an authentication failure escape as a panic; every failure becomes a state
//     transition plus a message.
//   - Import sub-packages that re-import goAuthClient (no import cycles).
package goAuthClient
