// Package engine wires the runtime together and drives it.
//
// An Engine owns one subject's interception layer, condition manager, rule
// runtime, command registry and state store. It moves them through the
// init, load and run phases and then serves them from a single-writer
// event loop.
//
// Single-writer loop:
// Everything that mutates runtime state runs on the goroutine that calls
// Run: periodic sweeps, coalesced state syncs, delayed rule callbacks and
// posted work such as whisper commands. Other goroutines submit work with
// Post. A host that calls intercepted operations from its own thread must
// do so from the loop, or while the loop is not running.
//
// Ordering:
// Trigger log entries are stamped from a logical sequence clock that
// resumes from the highest sequence already stored for the subject. The
// log is ordered by that sequence, never by wall time.
//
// Error isolation:
// A failing sweep, sync or trigger write is logged and the loop carries
// on. Panics inside rule callbacks are recovered by the rule runtime;
// panics in posted work are recovered here.
package engine
