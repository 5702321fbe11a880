// Package ident derives action identifiers, constant names and request
// correlation identifiers.
//
// Action identifiers are namespaced strings of the form
// "<Group>.<operation>[.<suboperation>]" and double as routing keys on the
// dispatch bus. They are pure functions of their inputs.
//
// Correlation identifiers are minted from a Sequence, a monotonic counter
// that is owned explicitly and injected where needed. Default is the single
// process-wide instance wired in at composition time; it is never reset.
package ident
