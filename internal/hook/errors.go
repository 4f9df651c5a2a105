package hook

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is returned when calling an operation the host never defined.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrPatchTargetMissing is returned when a patch fragment is absent from the routine source.
	ErrPatchTargetMissing = errors.New("patch target missing")

	// ErrMaxDepth is returned when nested calls exceed MaxDepth.
	ErrMaxDepth = errors.New("maximum interception depth exceeded")
)

// PatchError describes a failed source patch.
type PatchError struct {
	Operation string
	Fragment  string
	Err       error
}

func (e *PatchError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("patch %s: %v: %q", e.Operation, e.Err, e.Fragment)
	}
	return fmt.Sprintf("patch %s: %v", e.Operation, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

// IsPatchTargetMissing reports whether err is a missing-fragment patch failure.
func IsPatchTargetMissing(err error) bool {
	return errors.Is(err, ErrPatchTargetMissing)
}
