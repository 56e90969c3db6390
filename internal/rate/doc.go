// Package rate holds the Redis fixed-window counter ([Window]) and the login
// failure [Limiter] built on it.
//
// A window starts at a subject's first hit and lasts its period. The
// increment and the expiry run in one script.
//
// Key prefixes:
//   - pl: login failures per email
//   - pli: login failures per IP
//
// Flow budgets live in internal/limiters.
package rate
