// Package lockout throttles failed key-verification attempts per
// (origin, encryption-context) pair and enforces a temporary block once the
// failure threshold is crossed.
//
// Each pair moves through three logical states: open (no failures), warning
// (some failures, below the threshold) and blocked (threshold reached, block
// expiry set). Expiry is lazy — a blocked record whose expiry has passed is
// treated as open the next time it is read, so no background timer is needed
// for correctness. SweepExpired exists purely to reclaim storage and may run
// on any schedule.
//
// # Architecture
//
// The Limiter owns the policy (threshold, block duration, messages) and
// delegates state to a Store. Two stores are provided:
//
//   - MemoryStore: mutex-protected map, suitable for a single process and
//     for tests.
//   - RedisStore: shared state via Redis, with the increment performed by a
//     Lua script so two concurrent failures can never both observe the same
//     pre-increment count and miss the blocking boundary.
//
// Counting failures atomically is a correctness requirement, not an
// optimization: a naive read-modify-write lets parallel wrong-key attempts
// undercount and delay the lockout.
//
// # Usage
//
//	store := lockout.NewMemoryStore()
//	limiter := lockout.NewLimiter(store, lockout.Config{})
//
//	status, err := limiter.Check(ctx, origin, contextID)
//	if status.Blocked {
//	    // refuse without consulting the verifier
//	}
package lockout
