// Package hook implements the interception layer: ordered interceptor chains
// wrapping named host operations.
//
// # Ordering
//
// Each operation owns exactly one chain. Entries are ordered by priority
// (lower runs first, i.e. outermost) and then by registration order. Chains
// only grow; an owner re-registering the same (operation, priority) pair
// replaces its handler in place.
//
// # Calling convention
//
// A handler receives the call arguments and a next continuation. Calling
// next runs the rest of the chain and finally the host implementation.
// Returning without calling next vetoes the call. A second call to next
// returns the first result without running the downstream chain again.
//
// Dispatch holds no lock, so handlers may re-enter the layer (including the
// same operation) up to MaxDepth nested calls.
//
// # Patches
//
// Patch is the narrow escape hatch for routines that cannot be wrapped: it
// substitutes literal fragments in the routine's source and installs the
// recompiled body underneath the chain. A missing fragment fails the whole
// patch with ErrPatchTargetMissing.
package hook
