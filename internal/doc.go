// Package internal holds module-private helpers shared across kinauth
// packages: session token generation today. Nothing here is part of the
// public API and nothing here may import the root package.
package internal
