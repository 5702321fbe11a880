// Package request issues asynchronous transport calls on behalf of actions
// and reports their lifecycle on the dispatch bus.
//
// # Lifecycle
//
// For a request with correlation id "7# Users.load":
//
//  1. Vuo.requestBegin {id}                  (synchronously, from Issue)
//  2. Vuo.requestProgress {id, value, total} (zero or more times)
//  3. Vuo.requestEnd {id}
//  4. on failure: Vuo.requestError {id, error}, then <actionID>.error
//     {id, error}, then Def.OnError
//     on success: Def.OnComplete, then the Dispatch target with the
//     response body merged in (or carried as "value")
//
// Steps 2-4 run on the Issuer's Scheduler, so a dispatch.Loop keeps every
// bus delivery on one goroutine.
//
// Transport failures never surface from Issue; only definition errors
// (missing id, zero or several verbs) do.
package request
