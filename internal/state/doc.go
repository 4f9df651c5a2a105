// Package state owns the persisted representation of every condition record.
//
// The durable form is one canonical-JSON object:
//
//	{
//	  "version": 1,
//	  "conditions": {
//	    "rules":  { "other_log_money": { "active": true, "data": { "customData": {...}, "internalData": 60 } } },
//	    "curses": { "ItemArms": { "active": true, "data": {...} } }
//	  }
//	}
//
// Rules are the "rules" category; their data carries customData and
// internalData. Unknown top-level keys are preserved untouched.
//
// Load validates every entry through a Validator, drops orphaned or invalid
// entries with a log line, and performs the one-shot legacy migration of the
// flat "cursedItems" map. Writes are synchronous in memory; durability goes
// through a Backend and is coalesced: any number of writes between two
// dispatches produce a single Save.
package state
