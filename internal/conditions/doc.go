// Package conditions runs condition categories: per-category handlers,
// trigger requirements, effect tracking, and the periodic sweep.
//
// A condition is "in effect" when it is active and all of its trigger
// requirements hold. The Manager remembers the last observed effect of
// every condition and tells handlers when it flips, either during a
// sweep or immediately after SetActive and removal.
//
// The sweep visits enabled categories in registration order. Each
// condition is snapshotted, expired timers are applied, effect flips are
// delivered, and active conditions are ticked. Panics are recovered per
// condition. If anything changed, the store is flushed exactly once.
//
// A Manager is not safe for concurrent use; the engine serializes calls
// on its event loop.
package conditions
