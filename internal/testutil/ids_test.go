package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("trigger")
	assert.Equal(t, "trigger-0001", gen.Generate())
	assert.Equal(t, "trigger-0002", gen.Generate())

	assert.Equal(t, "id-0001", NewSequentialIDs("").Generate())
}
