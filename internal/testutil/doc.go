// Package testutil provides deterministic collaborators for tests and
// scenario runs: registration token generators, a payload recorder and a
// scripted transport.
package testutil
