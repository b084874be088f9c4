// Package internal contains helpers that are private to goAuthClient.
//
// # Sub-packages
//
//   - audit: asynchronous event dispatch (Dispatcher and Sink implementations)
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthClient API except through aliases.
//   - Be imported by any package outside the goAuthClient module.
package internal
