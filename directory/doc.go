// Package directory provides the SQLite reference implementation of
// kinauth.UserDirectory. Production deployments are expected to implement the
// interface over whatever database already holds their user records; this
// package is the wiring example and the collaborator the integration tests
// run against.
package directory
