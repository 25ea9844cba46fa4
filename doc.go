// Package kinauth is the identity layer of a multi-user chat front-end with
// parent and child accounts. It covers password policy enforcement, Argon2id
// credential hashing, a per-account failed-attempt lockout state machine, and
// opaque session tokens with server-side expiry and instant revocation.
//
// The package is a library, not a server: the HTTP shell owns routing,
// rendering, and the wire shape of the request-scoped session. kinauth
// consumes two collaborator interfaces — [UserDirectory] for user records and
// [session.Store] for session rows — and exposes a [Service] facade built
// through [Builder.Build]. Service methods are safe for concurrent use; all
// durable state lives in the backing stores, never in process memory.
//
// # Architecture boundaries
//
// kinauth is the public surface. It exposes [Service], [Builder], [Config],
// the [User] and [Role] model, and the error taxonomy. Token generation and
// metric counters live under internal/ and are never exported. The directory
// and middleware sub-packages are optional: a SQLite reference implementation
// of [UserDirectory] and net/http interceptors over the [SessionBag].
//
// # What this package must NOT do
//
//   - Cache User or Session rows across calls; every validation consults the
//     backing store so revocation is immediate and visible to all instances.
//   - Reveal whether a username exists; unknown user and wrong password must
//     produce the same failure.
//   - Grant access when persistence is uncertain; store errors fail closed.
package kinauth
