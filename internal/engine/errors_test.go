package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := &Error{
		Code:    ErrCodeTriggerLogFailed,
		Message: "append trigger",
		Subject: "alice",
		Rule:    "other_forbid_afk",
		Err:     errors.New("disk full"),
	}
	assert.Equal(t, "TRIGGER_LOG_FAILED: append trigger (subject=alice, rule=other_forbid_afk): disk full", err.Error())

	bare := &Error{Code: ErrCodeSweepFailed, Message: "flush after sweep", Subject: "alice"}
	assert.Equal(t, "SWEEP_FAILED: flush after sweep (subject=alice)", bare.Error())
}

func TestError_Predicates(t *testing.T) {
	cause := errors.New("locked")
	wrapped := fmt.Errorf("outer: %w", &Error{Code: ErrCodeLoadFailed, Subject: "alice", Err: cause})

	assert.True(t, IsLoadError(wrapped))
	assert.False(t, IsSweepError(wrapped))
	assert.False(t, IsTriggerLogError(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, IsLoadError(cause))
}
