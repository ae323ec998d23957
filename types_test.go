package trino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullSlice(t *testing.T) {
	t.Run("Scan from string", func(t *testing.T) {
		var s NullSlice[string]
		require.NoError(t, s.Scan(`["go","trino"]`))
		assert.True(t, s.Valid)
		assert.Equal(t, []string{"go", "trino"}, s.Slice)
	})

	t.Run("Scan from bytes", func(t *testing.T) {
		var s NullSlice[int]
		require.NoError(t, s.Scan([]byte(`[1,2,3]`)))
		assert.True(t, s.Valid)
		assert.Equal(t, []int{1, 2, 3}, s.Slice)
	})

	t.Run("Scan NULL", func(t *testing.T) {
		s := NullSlice[string]{Slice: []string{"stale"}, Valid: true}
		require.NoError(t, s.Scan(nil))
		assert.False(t, s.Valid)
		assert.Nil(t, s.Slice)
	})

	t.Run("Scan unsupported type", func(t *testing.T) {
		var s NullSlice[string]
		assert.Error(t, s.Scan(42))
	})

	t.Run("Value round trip", func(t *testing.T) {
		s := NullSlice[string]{Slice: []string{"a"}, Valid: true}
		v, err := s.Value()
		require.NoError(t, err)
		assert.Equal(t, `["a"]`, v)

		v, err = NullSlice[string]{}.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestNullMap(t *testing.T) {
	t.Run("Scan from string", func(t *testing.T) {
		var m NullMap[string, float64]
		require.NoError(t, m.Scan(`{"timeout":30}`))
		assert.True(t, m.Valid)
		assert.Equal(t, map[string]float64{"timeout": 30}, m.Map)
	})

	t.Run("Scan NULL", func(t *testing.T) {
		m := NullMap[string, int]{Map: map[string]int{"x": 1}, Valid: true}
		require.NoError(t, m.Scan(nil))
		assert.False(t, m.Valid)
		assert.Nil(t, m.Map)
	})

	t.Run("Value", func(t *testing.T) {
		m := NullMap[string, int]{Map: map[string]int{"a": 1}, Valid: true}
		v, err := m.Value()
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, v)
	})
}

func TestNullRow(t *testing.T) {
	type address struct {
		Street string `json:"street"`
		City   string `json:"city"`
	}

	t.Run("Scan into struct", func(t *testing.T) {
		var r NullRow[address]
		require.NoError(t, r.Scan(`{"street":"123 Main St","city":"Springfield"}`))
		assert.True(t, r.Valid)
		assert.Equal(t, "Springfield", r.Row.City)
	})

	t.Run("Scan NULL resets the row", func(t *testing.T) {
		r := NullRow[address]{Row: address{City: "stale"}, Valid: true}
		require.NoError(t, r.Scan(nil))
		assert.False(t, r.Valid)
		assert.Empty(t, r.Row.City)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		var r NullRow[address]
		assert.Error(t, r.Scan(`{broken`))
		assert.False(t, r.Valid)
	})
}
