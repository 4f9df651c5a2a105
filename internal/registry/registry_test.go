package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type def struct {
	name  string
	valid bool
}

func (d def) Validate() error {
	if !d.valid {
		return errors.New("name must not be empty")
	}
	return nil
}

func TestRegister_Duplicate(t *testing.T) {
	r := New[def]("rules", NewPhaseTracker())

	require.NoError(t, r.Register("other_log_money", def{name: "money", valid: true}))
	err := r.Register("other_log_money", def{name: "again", valid: true})

	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	got, ok := r.Get("other_log_money")
	require.True(t, ok)
	assert.Equal(t, "money", got.name)
}

func TestRegister_AfterInit(t *testing.T) {
	phase := NewPhaseTracker()
	r := New[def]("rules", phase)
	require.NoError(t, r.Register("a", def{valid: true}))

	require.NoError(t, phase.Advance(PhaseLoad))
	err := r.Register("b", def{valid: true})

	require.Error(t, err)
	assert.True(t, IsInvalidPhase(err))
	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, CodeInvalidPhase, re.Code)
	assert.False(t, r.Has("b"))
}

func TestRegister_ValidatesDefinition(t *testing.T) {
	r := New[def]("rules", NewPhaseTracker())

	err := r.Register("broken", def{valid: false})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.Equal(t, 0, r.Len())

	assert.ErrorIs(t, r.Register("", def{valid: true}), ErrInvalidDefinition)
}

func TestRegistry_Order(t *testing.T) {
	r := New[def]("rules", NewPhaseTracker())
	for _, id := range []string{"c", "a", "b"} {
		r.MustRegister(id, def{valid: true})
	}

	assert.Equal(t, []string{"c", "a", "b"}, r.IDs())
	assert.Equal(t, 1, r.Index("a"))
	assert.Equal(t, -1, r.Index("zzz"))
}

func TestMustRegister_Panics(t *testing.T) {
	r := New[def]("rules", NewPhaseTracker())
	r.MustRegister("a", def{valid: true})
	assert.Panics(t, func() { r.MustRegister("a", def{valid: true}) })
}

func TestPhaseTracker(t *testing.T) {
	p := NewPhaseTracker()
	assert.Equal(t, PhaseInit, p.Phase())

	require.NoError(t, p.Advance(PhaseLoad))
	require.NoError(t, p.Advance(PhaseRun))
	assert.ErrorIs(t, p.Advance(PhaseLoad), ErrInvalidPhase)
	assert.ErrorIs(t, p.Advance(PhaseRun), ErrInvalidPhase)
	assert.Equal(t, "run", p.Phase().String())
}
