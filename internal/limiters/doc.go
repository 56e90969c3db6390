// Package limiters holds the flow budgets: per-subject and per-IP windows for
// identification lookups, recovery code sends and code verification
// attempts, each a [rate.Window] with its own key prefix.
//
// [FlowLimiter] is nil-safe. Errors are the internal/rate sentinels; callers
// map them to their own error taxonomy.
package limiters
