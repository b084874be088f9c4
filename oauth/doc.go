// Package oauth completes the return leg of an external identity-provider flow.
//
// # Delivery modes
//
// A callback URL carrying a token is completed in one of two ways:
//
//   - Redirect: the callback loaded in the main window. The token is handed to the
//     session context and the window navigates home.
//   - Popup: the callback loaded in a window that has an opener. The token is posted
//     to the opener as a same-origin [Message] and the popup closes. Nothing is
//     persisted in the popup.
//
// The opener side is a [Bridge]: it queues messages that arrive before its own
// session context is ready and validates origin and shape before logging in.
//
// # Failure handling
//
// A provider error or a callback with no token produces a failed [Completion] and a
// delayed navigation to the login path. [Completion.Teardown] cancels that
// navigation.
//
// # Architecture boundaries
//
// This package talks to the session only through [Sessions]. It never writes
// storage and never parses tokens itself.
package oauth
