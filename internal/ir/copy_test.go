package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsDeep(t *testing.T) {
	orig := Object{"list": Array{Int(1)}, "nested": Object{"n": Int(1)}}
	cp := Clone(orig).(Object)

	cp["list"].(Array)[0] = Int(99)
	cp["nested"].(Object)["n"] = Int(99)

	assert.Equal(t, Int(1), orig["list"].(Array)[0])
	assert.Equal(t, Int(1), orig["nested"].(Object)["n"])
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"both undefined", nil, nil, true},
		{"undefined vs null", nil, Null{}, false},
		{"same ints", Int(3), Int(3), true},
		{"int vs bool", Int(1), Bool(true), false},
		{"objects", Object{"a": Int(1)}, Object{"a": Int(1)}, true},
		{"object extra key", Object{"a": Int(1)}, Object{"a": Int(1), "b": Int(2)}, false},
		{"array order", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestObjectAccessors(t *testing.T) {
	obj := Object{"b": Bool(true), "n": Int(5), "s": String("x"), "l": StringList("a", "b")}

	b, ok := obj.Bool("b")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = obj.Int("b")
	assert.False(t, ok)

	l, ok := obj.Strings("l")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, l)

	assert.Equal(t, "undefined", Kind(obj["missing"]))
}
