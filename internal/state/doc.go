// Package state implements the State Cell: a single named value guarded by
// an ordered validator pipeline.
//
// A cell is created once with Define. Its options install, in order:
//
//  1. a type check (Type), always first in the pipeline
//  2. initializers (Min, Max, Bound, Protect, Persist) in declaration order
//  3. the initial value, applied through Set unless an initializer already
//     loaded one (Persist reads a previously stored value)
//
// Every mutation runs the full pipeline. Reads return deep copies so callers
// can never alias the stored value.
package state
