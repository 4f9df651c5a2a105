// Package ir is the value model shared by every rule and condition record.
//
// Persisted rule data (customData, internalData, condition payloads) is held
// as a tree of constrained values rather than as `any`, so that the sweep can
// snapshot, compare and serialize records without reflection surprises.
//
// Key constraints:
//   - NO float types. Numbers are int64; integral JSON floats are narrowed on
//     decode, fractional ones are rejected.
//   - Object iteration order is never observable: use SortedKeys.
//   - Canonical JSON (RFC 8785, NFC strings) is the only serialization used
//     for digests and for the durable state blob.
//
// ir imports nothing internal.
package ir
