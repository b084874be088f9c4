// Package token inspects session tokens on the client side.
//
// A session token is a three-segment, dot-separated JWT. Only the claims segment is
// read: the package checks structure, decodes the claims and compares the `exp`
// claim against a caller-supplied clock.
//
// # Architecture boundaries
//
// Signatures are NOT verified here. Verification is delegated to the issuing backend,
// which rejects forged tokens with an authentication-failure status.
//
// # What this package must NOT do
//
//   - Persist tokens or claims.
//   - Import goAuthClient or any sibling package.
//   - Make authorization decisions beyond reporting claims and expiry.
package token
