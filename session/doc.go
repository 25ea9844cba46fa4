// Package session issues, validates, and revokes the opaque bearer tokens
// that prove a prior successful authentication. A session is valid iff its
// row exists in the [Store] and its expiry is strictly in the future; there
// is deliberately no in-process cache, so revocation is instant and visible
// across every server instance sharing the store.
//
// The package ships a Redis-backed [RedisStore] using a compact binary row
// encoding; any other backend can be plugged in by implementing [Store]
// (and optionally [UserPurger] for purge-on-password-change).
//
// # What this package must NOT do
//
//   - Cache or memoize session rows between calls.
//   - Sweep expired rows; validation treats expired-but-present rows as
//     invalid and callers are not required to delete them.
//   - Log or expose token values.
package session
