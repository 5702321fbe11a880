// Package actions builds action creators.
//
// A Group owns a name and publishes two kinds of operations:
//
//   - Action: a named operation with identifier "<Group>.<name>". Without a
//     handler, calling it broadcasts {type, value}. With a handler, the
//     handler receives a Context exposing Dispatch and Request.
//   - Resource: four sibling REST operations (get, query, set, remove)
//     mapped to GET, GET, POST and DELETE.
//
// Every operation exposes its identifier, its error identifier and its
// constant name. Exports returns the constant table for the whole group.
//
// Correlation ids for requests come from the Group's ident.Sequence, shared
// by default with every other group in the process.
package actions
