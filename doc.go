// Package goPortal is the access layer of a multi-role commerce portal: it
// resolves each role's home screen, guards every navigation against the
// route table, and drives the identity verification and password recovery
// wizards against a remote identity backend.
//
// Sessions are opaque Redis records referenced by a signed JWT. Build a
// [Portal] with [Builder]; its methods are safe for concurrent use.
//
// # Architecture boundaries
//
// goPortal is the public surface. It exposes [Portal], [Builder], [Config],
// the pure guard functions ([Guard], [Navigate], [ResolveHome]) and the
// wizard drivers ([VerificationFlow], [RecoveryFlow]). Wizard state machines,
// rate limiting and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or session encoding in its public API.
//   - Import any sub-package that re-imports goPortal.
//   - Call the backend from the guard. Navigation decisions read only the
//     session and the route table.
package goPortal
