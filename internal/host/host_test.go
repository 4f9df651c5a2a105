package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccessLevel(t *testing.T) {
	for l := LevelSelf; l <= LevelPublic; l++ {
		got, err := ParseAccessLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	_, err := ParseAccessLevel("stranger")
	assert.Error(t, err)
}
