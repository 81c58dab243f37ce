package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrShapeMismatch is returned by Merge when structured arguments do not share
// the same keys.
var ErrShapeMismatch = errors.New("structured arguments do not share the same shape")

// Field is one labeled value of a Structured.
type Field struct {
	Key   string
	Value Result
}

// Structured is a labeled composite of Results. Keys keep insertion order.
// A value is either a nested *Structured or a plain payload.
type Structured struct {
	keys   []string
	values map[string]Result
}

// NewStructured creates a Structured from fields. A repeated key overwrites
// the earlier value but keeps its position.
func NewStructured(fields ...Field) *Structured {
	s := &Structured{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]Result, len(fields)),
	}
	for _, f := range fields {
		s.set(f.Key, f.Value)
	}
	return s
}

func (s *Structured) set(key string, value Result) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Keys returns the labels in insertion order.
func (s *Structured) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the value stored under key.
func (s *Structured) Get(key string) (Result, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of labels.
func (s *Structured) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Map returns a new Structured of the same shape with fn applied to every
// payload. Nested composites are rebuilt, never shared.
func (s *Structured) Map(fn func(Result) (Result, error)) (*Structured, error) {
	out := NewStructured()
	for _, key := range s.keys {
		v := s.values[key]
		if nested, ok := v.(*Structured); ok {
			m, err := nested.Map(fn)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out.set(key, m)
			continue
		}
		r, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out.set(key, r)
	}
	return out, nil
}

// String renders the composite as "{lhs: [y], rhs: [a, b]}".
func (s *Structured) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(key)
		b.WriteString(": ")
		if v := s.values[key]; v != nil {
			b.WriteString(v.String())
		} else {
			b.WriteString("<nil>")
		}
	}
	b.WriteByte('}')
	return b.String()
}

func (*Structured) result() {}

// MergeFunc combines one position's arguments into a Result.
type MergeFunc func(args []Result) (Result, error)

// Merge combines args position by position. When no argument is Structured,
// fn is called once on args as given. Otherwise the first Structured argument
// defines the shape, every Structured argument must have the same key set, and
// for each key fn is applied (recursively) to the arguments' values at that
// key, with non-Structured arguments broadcast to every position.
func Merge(args []Result, fn MergeFunc) (Result, error) {
	var shape *Structured
	for _, a := range args {
		s, ok := a.(*Structured)
		if !ok {
			continue
		}
		if shape == nil {
			shape = s
			continue
		}
		if !sameKeys(shape, s) {
			return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, shape.keys, s.keys)
		}
	}
	if shape == nil {
		return fn(args)
	}

	out := NewStructured()
	for _, key := range shape.keys {
		sub := make([]Result, len(args))
		for i, a := range args {
			if s, ok := a.(*Structured); ok {
				sub[i] = s.values[key]
			} else {
				sub[i] = a
			}
		}
		r, err := Merge(sub, fn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out.set(key, r)
	}
	return out, nil
}

func sameKeys(a, b *Structured) bool {
	if len(a.keys) != len(b.keys) {
		return false
	}
	x := append([]string(nil), a.keys...)
	y := append([]string(nil), b.keys...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
