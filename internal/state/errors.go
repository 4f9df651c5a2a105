package state

import (
	"errors"
	"fmt"
)

// CodeOrphanedState marks pruned entries.
const CodeOrphanedState = "ORPHANED_STATE"

// ErrOrphanedState matches every OrphanError.
var ErrOrphanedState = errors.New("orphaned state")

// OrphanError describes a stored entry dropped during Load. It is reported
// and logged, never returned as a failure.
type OrphanError struct {
	Category  string `json:"category"`
	Condition string `json:"condition,omitempty"`
	Reason    string `json:"reason"`
}

func (e *OrphanError) Error() string {
	if e.Condition != "" {
		return fmt.Sprintf("%s: %s/%s: %s", CodeOrphanedState, e.Category, e.Condition, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", CodeOrphanedState, e.Category, e.Reason)
}

// Is matches ErrOrphanedState.
func (e *OrphanError) Is(target error) bool {
	return target == ErrOrphanedState
}
