// Package catalog holds the built-in rule definitions.
//
// Rules that react to host events intercept the operations named in
// ops.go; the host is expected to define those operations on the
// interception layer (DefineOperations installs stand-ins that are enough
// for scenarios and the CLI). Per-rule working state that must survive a
// restart lives in the rule's internal data; everything else is held on
// the rule's own struct and rebuilt on load.
package catalog
