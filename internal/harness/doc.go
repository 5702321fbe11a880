// Package harness runs scenario files against a fully wired vuo runtime.
//
// A scenario declares stores and their cells, binds action identifiers to
// cells, scripts transport responses and then executes a list of steps. The
// harness records every dispatched payload and every store change event into
// a trace that can be asserted on or compared against a golden snapshot.
//
// # Scenario Format
//
// Scenarios are YAML (or CUE, see below) files with the following structure:
//
//	name: counter_clamp
//	description: "Bound cells clamp out-of-range values"
//	persisted:
//	  "Counter:count": 3
//	stores:
//	  - name: Counter
//	    cells:
//	      - name: count
//	        type: integer
//	        initial: 0
//	        min: 0
//	        max: 10
//	        persist: true
//	    bindings:
//	      - action: Counter.set
//	        cell: count
//	responses:
//	  - method: GET
//	    path: /counter
//	    body: { count: 7 }
//	steps:
//	  - dispatch: { type: Counter.set, value: 12 }
//	    expect_change:
//	      Counter: { count: 10 }
//	  - set_state:
//	      store: Counter
//	      values: { missing: 1 }
//	    expect_error: "undeclared"
//	  - request:
//	      action: Counter.load
//	      get: /counter
//	      dispatch: Counter.loaded
//	assertions:
//	  - type: final_state
//	    store: Counter
//	    expect: { count: 10 }
//
// An absent expect_change skips the check. An empty one (expect_change: {})
// asserts that the step changed nothing.
//
// # Assertion Types
//
//   - trace_contains: a payload of the given type whose fields include data
//   - trace_order: payload types appear in the given order (first occurrence)
//   - trace_count: a payload type is dispatched exactly count times
//   - final_state: the public cells of a store match expect
//
// # CUE Scenarios
//
// Files ending in .cue are evaluated with cuelang.org/go, must be concrete,
// and are then decoded with the same strict field checking as YAML. CUE lets
// scenario families share definitions through unification.
//
// # Deterministic Execution
//
// Every run uses a fresh correlation sequence (request ids start at "1# "),
// sequential bus tokens, in-memory persistence and a scripted transport, so
// the same scenario always produces a byte-identical trace.
package harness
