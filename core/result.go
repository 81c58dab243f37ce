package core

import (
	"strings"
)

// Result is the output of evaluating one expression node. It is one of:
//   - *TermSet: a flat ordered collection of terms
//   - Tuple: a fixed-size group of collections for multi-valued operators
//   - *Structured: a labeled composite whose values are Results
//
// The set of variants is closed; code switches on the concrete type.
type Result interface {
	String() string
	result()
}

// Tuple is a fixed-size group of term collections produced by operators that
// return several parallel term sets.
type Tuple []*TermSet

// NewTuple creates a tuple of the given sets.
func NewTuple(sets ...*TermSet) Tuple {
	t := make(Tuple, len(sets))
	copy(t, sets)
	return t
}

// Len returns the number of collections in the tuple.
func (t Tuple) Len() int { return len(t) }

// String renders the tuple as "(a, b)" using each set's String form.
func (t Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, s := range t {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (Tuple) result() {}

// Variant names returned by Describe.
const (
	VariantTerms      = "terms"
	VariantTuple      = "tuple"
	VariantStructured = "structured"
)

// Describe returns the variant name of r, or "none" for nil.
func Describe(r Result) string {
	switch r.(type) {
	case *TermSet:
		return VariantTerms
	case Tuple:
		return VariantTuple
	case *Structured:
		return VariantStructured
	default:
		return "none"
	}
}

// IsStructured reports whether r is a *Structured.
func IsStructured(r Result) bool {
	_, ok := r.(*Structured)
	return ok
}

// AnyStructured reports whether any of rs is a *Structured.
func AnyStructured(rs []Result) bool {
	for _, r := range rs {
		if IsStructured(r) {
			return true
		}
	}
	return false
}

// Equal reports whether a and b are the same variant with equal contents.
// Term sets compare by key order, structured values by key order and values.
func Equal(a, b Result) bool {
	switch av := a.(type) {
	case *TermSet:
		bv, ok := b.(*TermSet)
		return ok && av.Equal(bv)
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	case *Structured:
		bv, ok := b.(*Structured)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i, key := range av.keys {
			if bv.keys[i] != key {
				return false
			}
			if !Equal(av.values[key], bv.values[key]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// CountTerms returns the number of terms held by r across all variants.
func CountTerms(r Result) int {
	switch v := r.(type) {
	case *TermSet:
		return v.Len()
	case Tuple:
		n := 0
		for _, s := range v {
			n += s.Len()
		}
		return n
	case *Structured:
		n := 0
		for _, key := range v.keys {
			n += CountTerms(v.values[key])
		}
		return n
	default:
		return 0
	}
}
