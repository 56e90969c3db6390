// Package middleware adapts the portal to net/http.
//
// # Guards
//
//   - [Guard] resolves the session and applies the route guard to the
//     requested path: the screen renders, or the visitor is redirected.
//   - [Session] resolves the session without guarding; API routes use it.
//
// The session token is read from the portal_session cookie, then from an
// Authorization: Bearer header. Handlers read the resolved session with
// [SessionFromContext].
//
// # Request plumbing
//
// [RequestID], [ClientIP], [Logging] and [Recover] carry request metadata
// into the portal's audit records and the structured log.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Portal).
//   - Decide access itself (every decision comes from Portal.Navigate).
package middleware
