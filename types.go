package trino

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// The driver returns ARRAY, MAP, and ROW columns as JSON strings. The
// nullable wrappers below decode them into Go values through sql.Scanner.

// scanJSON decodes a driver-provided JSON string or []byte into dst.
// A nil src reports NULL without touching dst.
func scanJSON(src any, dst any) (valid bool, err error) {
	if src == nil {
		return false, nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return false, fmt.Errorf("trino: cannot scan %T into %T", src, dst)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("trino: cannot unmarshal %T: %w", dst, err)
	}
	return true, nil
}

func valueJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NullSlice is a nullable ARRAY column value.
//
//	var names NullSlice[string]
//	err := row.Scan(&names)
type NullSlice[T any] struct {
	Slice []T
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullSlice[any])(nil)
var _ driver.Valuer = (*NullSlice[any])(nil)

// Scan implements sql.Scanner.
func (s *NullSlice[T]) Scan(src any) error {
	s.Slice = nil
	valid, err := scanJSON(src, &s.Slice)
	s.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (s NullSlice[T]) Value() (driver.Value, error) {
	if !s.Valid {
		return nil, nil
	}
	return valueJSON(s.Slice)
}

// NullMap is a nullable MAP column value.
//
//	var props NullMap[string, int]
//	err := row.Scan(&props)
type NullMap[K comparable, V any] struct {
	Map   map[K]V
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullMap[string, any])(nil)
var _ driver.Valuer = (*NullMap[string, any])(nil)

// Scan implements sql.Scanner.
func (m *NullMap[K, V]) Scan(src any) error {
	m.Map = nil
	valid, err := scanJSON(src, &m.Map)
	m.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (m NullMap[K, V]) Value() (driver.Value, error) {
	if !m.Valid {
		return nil, nil
	}
	return valueJSON(m.Map)
}

// NullRow is a nullable ROW column value. Scan into a struct with json tags
// matching the row field names, or into a map[string]any.
type NullRow[T any] struct {
	Row   T
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullRow[any])(nil)
var _ driver.Valuer = (*NullRow[any])(nil)

// Scan implements sql.Scanner.
func (r *NullRow[T]) Scan(src any) error {
	var zero T
	r.Row = zero
	valid, err := scanJSON(src, &r.Row)
	r.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (r NullRow[T]) Value() (driver.Value, error) {
	if !r.Valid {
		return nil, nil
	}
	return valueJSON(r.Row)
}
