// Package password provides the two credential primitives of kinauth: a
// stateless strength [Policy] with user-displayable rejection reasons, and an
// Argon2id hasher emitting PHC-format strings.
//
// # What this package must NOT do
//
//   - Persist anything, or read clocks; both primitives are pure.
//   - Treat a malformed stored digest as "no password". Verify fails closed.
//   - Apply the policy to stored hashes; it gates new plaintext only.
package password
