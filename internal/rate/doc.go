// Package rate throttles failed admin logins.
//
// Two implementations share the LoginLimiter contract:
//
//   - RedisLimiter keeps fixed-window counters (INCR, then EXPIRE on the first
//     hit) so every replica sees the same budget. Keys are "adl:<username>"
//     and "adli:<ip>".
//   - MemoryLimiter keeps a token bucket per key in process. It is used when no
//     Redis client is configured and is only correct for a single replica.
//
// Only failed attempts consume budget. A successful login resets it.
package rate
