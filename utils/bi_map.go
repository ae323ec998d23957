package utils

// BiMap is an immutable bidirectional map. It keeps a forward and a reverse
// index so lookups are O(1) in either direction. It exposes no mutators;
// build it once from a literal and share it freely.
type BiMap[K comparable, V comparable] struct {
	fwd map[K]V
	rev map[V]K
}

// NewBiMap builds a BiMap from the input map, copying it defensively.
// If the input contains duplicate values, the reverse index keeps the last
// key seen for that value.
func NewBiMap[K comparable, V comparable](input map[K]V) *BiMap[K, V] {
	fwd := make(map[K]V, len(input))
	rev := make(map[V]K, len(input))

	for k, v := range input {
		fwd[k] = v
		rev[v] = k
	}

	return &BiMap[K, V]{fwd: fwd, rev: rev}
}

// Lookup finds a value by key.
func (m *BiMap[K, V]) Lookup(key K) (V, bool) {
	value, ok := m.fwd[key]
	return value, ok
}

// DirectLookup finds a value by key, returning the zero value when absent.
func (m *BiMap[K, V]) DirectLookup(key K) V {
	return m.fwd[key]
}

// RLookup finds a key by value.
func (m *BiMap[K, V]) RLookup(value V) (K, bool) {
	key, ok := m.rev[value]
	return key, ok
}

// DirectRLookup finds a key by value, returning the zero value when absent.
func (m *BiMap[K, V]) DirectRLookup(value V) K {
	return m.rev[value]
}

// Len returns the number of forward entries.
func (m *BiMap[K, V]) Len() int {
	return len(m.fwd)
}
