package registry

import (
	"errors"
	"fmt"
)

// Code categorizes registration errors.
type Code string

const (
	// CodeDuplicateIdentifier: the id is already registered.
	CodeDuplicateIdentifier Code = "DUPLICATE_IDENTIFIER"
	// CodeInvalidPhase: registration attempted outside the init phase.
	CodeInvalidPhase Code = "INVALID_PHASE"
	// CodeInvalidDefinition: the definition failed its own validation.
	CodeInvalidDefinition Code = "INVALID_DEFINITION"
)

var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrInvalidPhase        = errors.New("invalid phase")
	ErrInvalidDefinition   = errors.New("invalid definition")
)

// Error is a registration-time programmer error. These are fatal: callers
// are expected to abort startup.
type Error struct {
	Code     Code
	Registry string
	ID       string
	Message  string
}

func (e *Error) Error() string {
	switch {
	case e.Registry != "" && e.ID != "":
		return fmt.Sprintf("%s: %s %q: %s", e.Code, e.Registry, e.ID, e.Message)
	case e.ID != "":
		return fmt.Sprintf("%s: %q: %s", e.Code, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeDuplicateIdentifier:
		return target == ErrDuplicateIdentifier
	case CodeInvalidPhase:
		return target == ErrInvalidPhase
	case CodeInvalidDefinition:
		return target == ErrInvalidDefinition
	}
	return false
}

// IsDuplicate reports whether err is a duplicate identifier error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateIdentifier)
}

// IsInvalidPhase reports whether err is a phase violation.
func IsInvalidPhase(err error) bool {
	return errors.Is(err, ErrInvalidPhase)
}

// Invalid builds an invalid-definition error.
func Invalid(registry, id, format string, args ...any) *Error {
	return &Error{
		Code:     CodeInvalidDefinition,
		Registry: registry,
		ID:       id,
		Message:  fmt.Sprintf(format, args...),
	}
}
