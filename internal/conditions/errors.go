package conditions

import "errors"

var (
	// ErrUnknownCategory is returned for categories with no handler.
	ErrUnknownCategory = errors.New("unknown conditions category")
	// ErrUnknownCondition is returned when a category has no such entry.
	ErrUnknownCondition = errors.New("unknown condition")
	// ErrPermissionDenied is returned when an actor may not change a condition.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotReady is returned before a store is attached.
	ErrNotReady = errors.New("conditions not initialized")
)
