// Package flows contains the pure state machines of the registration and
// password-recovery wizards and the runners that drive them against the
// backend.
//
// Each wizard is a value object (VerificationState, RecoveryState) plus a pure
// reducer (ReduceVerification, ReduceRecovery) mapping (state, event) to the
// next state. Runners such as RunIdentify and RunSendCode validate the submitted
// state locally, call the backend through a typed dependency struct and
// return the outcome event; they never touch the state themselves.
//
// # Architecture boundaries
//
// Runners coordinate calls to the backend, the rate limiter, audit and
// metrics. They do NOT own any of these resources: ownership stays with the
// Portal, which serialises state updates and holds the in-flight flag.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPortal (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
