// Package schema describes the configurable fields of a rule (its data
// definition) and validates customData against them.
//
// A field list is compiled once into a closed CUE definition:
//
//	#Data: {
//		"value":   bool
//		"restore": bool
//		"minutesBeforeAfk": int & >=1
//	}
//
// Validation encodes the candidate object into CUE, unifies it with #Data
// and requires a concrete result, so unknown keys, missing keys and type or
// range violations are all rejected by CUE. Per-field Check functions run
// afterwards for constraints CUE cannot express.
//
// Validation is all-or-nothing: callers must not store any part of an
// object that failed.
package schema
