// Package rules runs rule definitions on top of the conditions manager.
//
// A rule is a condition in the "rules" category whose data carries
//
//	{"customData": {...}, "internalData": <any>, "enforce": bool, "log": bool}
//
// customData is user configuration validated against the definition's data
// definition; internalData is the rule's private working memory.
//
// Lifecycle per stored rule:
//
//	init (once) -> load -> stateChange(true) ... tick ... stateChange(false) -> unload
//
// load runs at startup and whenever the rule is added. stateChange follows
// the manager's in-effect flag and is only delivered to loaded rules.
// Removing the rule, disabling the category or a removing timer all end in
// unload, which also cancels the rule's delayed callbacks. Hooks installed
// through State.Intercept stay in their chains but pass straight through
// while the rule is unloaded.
package rules
