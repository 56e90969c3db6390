// Package internal holds the secure random helpers shared by the portal and
// the development backend: session ids, numeric one-time codes and keyed
// code hashes.
//
// # Sub-packages
//
//   - appconfig: environment configuration of the binaries
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - devbackend: in-memory identity backend for development and tests
//   - flows: wizard state machines and their backend runners
//   - limiters: flow submission budgets
//   - mocks: generated Backend mock
//   - rate: Redis fixed-window counters and the login limiter
//   - server: HTTP routing of screens, session API and wizards
package internal
