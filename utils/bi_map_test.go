package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBiMap_Lookup(t *testing.T) {
	m := NewBiMap(map[string]int{"a": 1, "b": 2})

	v, ok := m.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Lookup("missing")
	assert.False(t, ok)

	k, ok := m.RLookup(2)
	assert.True(t, ok)
	assert.Equal(t, "b", k)

	_, ok = m.RLookup(99)
	assert.False(t, ok)
}

func TestBiMap_DirectLookup(t *testing.T) {
	m := NewBiMap(map[string]int{"a": 1})

	assert.Equal(t, 1, m.DirectLookup("a"))
	assert.Zero(t, m.DirectLookup("missing"))
	assert.Equal(t, "a", m.DirectRLookup(1))
	assert.Empty(t, m.DirectRLookup(99))
}

func TestBiMap_Len(t *testing.T) {
	assert.Equal(t, 2, NewBiMap(map[string]int{"a": 1, "b": 2}).Len())
	assert.Equal(t, 0, NewBiMap(map[string]int{}).Len())
}

func TestBiMap_DefensiveCopy(t *testing.T) {
	input := map[string]int{"a": 1}
	m := NewBiMap(input)

	input["a"] = 100
	assert.Equal(t, 1, m.DirectLookup("a"))
}
