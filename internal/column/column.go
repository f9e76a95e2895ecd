// Package column holds the typed, parallel arrays that flow from the truth
// stages through the chunker into a sink.
//
// Arrays are sealed: only Vec and List implement Array, so every sink can
// switch over a closed set of element types.
package column

import (
	"fmt"
)

// Type is the element type of a column.
type Type string

const (
	Int32   Type = "int32"
	Int64   Type = "int64"
	Float32 Type = "float32"
	UInt16  Type = "uint16"
)

// Shape describes what one row of a column holds.
type Shape int

const (
	// ShapeScalar columns hold one element per row.
	ShapeScalar Shape = iota
	// ShapeList columns hold a variable-length array per row.
	ShapeList
)

// String returns "scalar" or "list".
func (s Shape) String() string {
	if s == ShapeList {
		return "list"
	}
	return "scalar"
}

// Elem constrains the element types a column may carry.
type Elem interface {
	int32 | int64 | float32 | uint16
}

// Array is an ordered, typed sequence of rows.
type Array interface {
	// Len returns the number of rows.
	Len() int
	// Slice returns rows [lo, hi), clipped to the array's own length.
	Slice(lo, hi int) Array
	// Type returns the element type.
	Type() Type
	// Shape returns ShapeScalar for Vec and ShapeList for List.
	Shape() Shape
	// At returns row i as T (Vec) or []T (List).
	At(i int) any

	concat(other Array) (Array, error)
}

// Named pairs an array with its output column name.
type Named struct {
	Name string
	Array
}

// Def describes one output column.
type Def struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Shape Shape  `json:"shape"`
}

// String renders the definition as "name:type[shape]".
func (d Def) String() string {
	return fmt.Sprintf("%s:%s[%s]", d.Name, d.Type, d.Shape)
}

// SameDefs reports whether two column sets are identical, in order.
func SameDefs(a, b []Def) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typeOf[T Elem]() Type {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	default:
		return UInt16
	}
}

func clip(lo, hi, n int) (int, int) {
	lo = min(max(lo, 0), n)
	hi = min(max(hi, lo), n)
	return lo, hi
}

// Vec is a scalar column: one element per row.
type Vec[T Elem] []T

func (v Vec[T]) Len() int     { return len(v) }
func (v Vec[T]) Type() Type   { return typeOf[T]() }
func (v Vec[T]) Shape() Shape { return ShapeScalar }
func (v Vec[T]) At(i int) any { return v[i] }

func (v Vec[T]) Slice(lo, hi int) Array {
	lo, hi = clip(lo, hi, len(v))
	return v[lo:hi:hi]
}

func (v Vec[T]) concat(other Array) (Array, error) {
	o, ok := other.(Vec[T])
	if !ok {
		return nil, fmt.Errorf("concat %s vec with %s %s", v.Type(), other.Type(), other.Shape())
	}
	out := make(Vec[T], 0, len(v)+len(o))
	out = append(out, v...)
	return append(out, o...), nil
}

// List is a list column: one variable-length array per row.
type List[T Elem] [][]T

func (l List[T]) Len() int     { return len(l) }
func (l List[T]) Type() Type   { return typeOf[T]() }
func (l List[T]) Shape() Shape { return ShapeList }
func (l List[T]) At(i int) any { return l[i] }

func (l List[T]) Slice(lo, hi int) Array {
	lo, hi = clip(lo, hi, len(l))
	return l[lo:hi:hi]
}

func (l List[T]) concat(other Array) (Array, error) {
	o, ok := other.(List[T])
	if !ok {
		return nil, fmt.Errorf("concat %s list with %s %s", l.Type(), other.Type(), other.Shape())
	}
	out := make(List[T], 0, len(l)+len(o))
	out = append(out, l...)
	return append(out, o...), nil
}

// Wrap turns a scalar column into a single-row list column holding the
// whole array.
func Wrap(a Array) (Array, error) {
	switch v := a.(type) {
	case Vec[int32]:
		return List[int32]{v}, nil
	case Vec[int64]:
		return List[int64]{v}, nil
	case Vec[float32]:
		return List[float32]{v}, nil
	case Vec[uint16]:
		return List[uint16]{v}, nil
	default:
		return nil, fmt.Errorf("wrap: unsupported array %T", a)
	}
}

// Unwrap is the inverse of Wrap: it turns a single-row list column back
// into a scalar column.
func Unwrap(a Array) (Array, error) {
	if a.Shape() != ShapeList || a.Len() != 1 {
		return nil, fmt.Errorf("unwrap: want a single-row list, got %d %s rows", a.Len(), a.Shape())
	}
	switch v := a.(type) {
	case List[int32]:
		return Vec[int32](v[0]), nil
	case List[int64]:
		return Vec[int64](v[0]), nil
	case List[float32]:
		return Vec[float32](v[0]), nil
	case List[uint16]:
		return Vec[uint16](v[0]), nil
	default:
		return nil, fmt.Errorf("unwrap: unsupported array %T", a)
	}
}

// Concat appends b's rows to a. Both must have the same type and shape.
func Concat(a, b Array) (Array, error) {
	if a == nil {
		return b, nil
	}
	return a.concat(b)
}
