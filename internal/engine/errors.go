package engine

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by operations that need Load to have run.
var ErrNotLoaded = errors.New("engine not loaded")

// ErrorCode categorizes engine failures.
type ErrorCode string

const (
	// ErrCodeLoadFailed indicates stored state could not be restored.
	ErrCodeLoadFailed ErrorCode = "LOAD_FAILED"

	// ErrCodeSweepFailed indicates a sweep could not flush its changes.
	ErrCodeSweepFailed ErrorCode = "SWEEP_FAILED"

	// ErrCodeTriggerLogFailed indicates a trigger could not be persisted.
	ErrCodeTriggerLogFailed ErrorCode = "TRIGGER_LOG_FAILED"
)

// Error is a failure detected while running the engine.
type Error struct {
	Code    ErrorCode
	Message string
	// Subject is the member the engine serves.
	Subject string
	// Rule is set for failures tied to one rule.
	Rule string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (subject=%s", e.Code, e.Message, e.Subject)
	if e.Rule != "" {
		msg += ", rule=" + e.Rule
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsLoadError reports whether err is a failed load.
func IsLoadError(err error) bool {
	return hasCode(err, ErrCodeLoadFailed)
}

// IsSweepError reports whether err is a failed sweep.
func IsSweepError(err error) bool {
	return hasCode(err, ErrCodeSweepFailed)
}

// IsTriggerLogError reports whether err is a failed trigger write.
func IsTriggerLogError(err error) bool {
	return hasCode(err, ErrCodeTriggerLogFailed)
}
