// Package dispatch provides the broadcast bus connecting action producers to
// stores, and a single-writer loop that serialises asynchronous completions
// back onto the bus.
//
// Delivery model:
//
//   - Dispatch is synchronous: every registered callback runs on the caller's
//     goroutine, in registration order, before Dispatch returns.
//   - The callback slice is copied before delivery, so callbacks may dispatch
//     again or register/unregister without deadlocking.
//   - A panicking callback is recovered and reported; the remaining callbacks
//     still run.
//
// Asynchronous work (network requests) never touches stores from its own
// goroutine. It posts a Task to a Loop, and the goroutine running Loop.Run
// (or a test calling Drain) performs the resulting dispatches.
package dispatch
