// Package middleware exposes net/http adapters for the kinauth authorization
// gate: role-gated and any-authenticated guards over kinauth.Service.
//
// # Guards
//
//   - [RequireUser] — any authenticated account.
//   - [RequireRole] — one of an explicit set of roles.
//
// Each guard resolves the request's session bag through Service.CurrentUser,
// injects the resolved user into the request context, and rejects in the
// shape the caller understands: browsers get a redirect to the login page,
// programmatic clients get a structured JSON error.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Service.CurrentUser.
//
// # What this package must NOT do
//
//   - Verify passwords or touch the session store directly.
//   - Define how the bag is serialized to the client (the shell owns that).
//   - Make authorization decisions beyond role membership.
package middleware
