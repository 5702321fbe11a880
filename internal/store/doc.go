// Package store aggregates state cells behind a dispatch-bus subscription.
//
// A Store owns its cells exclusively. Action listeners registered with On or
// Bind run whenever a payload with a matching type is dispatched; they
// mutate cells through SetState, which emits a single "change" event
// carrying only the cells whose value actually changed.
//
// # Lifecycle
//
//	New -> Active -> (Unregister) -> Unregistered
//
// There is no paused state: listeners always fire while Active.
//
// # Reads
//
// Every read (Get, GetState, Derive, change payloads) returns deep copies.
// Protected cells fail Get with a ProtectedAccessError and are omitted from
// GetState snapshots.
package store
