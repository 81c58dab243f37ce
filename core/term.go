// Package core provides the foundational types for termgraph evaluations.
//
// This package contains:
//   - Terms and TermSet, the ordered unique collection evaluations produce
//   - Result, the sealed union of plain, tuple and structured outputs
//   - Structured and Merge, the shape-preserving container and its merge
//   - Operator, Leaf and EvalContext, the protocol used to combine arguments
package core

import (
	"strings"
)

// Term is an opaque unit of evaluation output. Two terms are equal iff their
// keys are equal.
type Term interface {
	// Key returns the identity of the term used for de-duplication.
	Key() string

	// String returns the display form of the term.
	String() string
}

// TermSet is an insertion-ordered, duplicate-free collection of terms.
// Sets passed to operators must be treated as read-only; operators build and
// return new sets.
type TermSet struct {
	terms []Term
	index map[string]int // key -> position in terms
}

// NewTermSet creates a set holding the given terms in order, dropping
// duplicates after their first occurrence.
func NewTermSet(terms ...Term) *TermSet {
	s := &TermSet{
		terms: make([]Term, 0, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

// Add appends t unless a term with the same key is already present.
// It reports whether the set changed.
func (s *TermSet) Add(t Term) bool {
	if t == nil {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := t.Key()
	if _, exists := s.index[key]; exists {
		return false
	}
	s.index[key] = len(s.terms)
	s.terms = append(s.terms, t)
	return true
}

// Contains reports whether a term with the same key is in the set.
func (s *TermSet) Contains(t Term) bool {
	if s == nil || t == nil {
		return false
	}
	_, ok := s.index[t.Key()]
	return ok
}

// Len returns the number of terms in the set.
func (s *TermSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}

// Terms returns the terms in insertion order.
func (s *TermSet) Terms() []Term {
	if s == nil {
		return nil
	}
	out := make([]Term, len(s.terms))
	copy(out, s.terms)
	return out
}

// Keys returns the term keys in insertion order.
func (s *TermSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, len(s.terms))
	for i, t := range s.terms {
		keys[i] = t.Key()
	}
	return keys
}

// Union returns a new set with the receiver's terms followed by the terms of
// each other set that are not yet present.
func (s *TermSet) Union(others ...*TermSet) *TermSet {
	out := NewTermSet(s.Terms()...)
	for _, o := range others {
		if o == nil {
			continue
		}
		for _, t := range o.terms {
			out.Add(t)
		}
	}
	return out
}

// Difference returns a new set with the receiver's terms that are not in other.
func (s *TermSet) Difference(other *TermSet) *TermSet {
	out := NewTermSet()
	if s == nil {
		return out
	}
	for _, t := range s.terms {
		if !other.Contains(t) {
			out.Add(t)
		}
	}
	return out
}

// Equal reports whether both sets hold the same keys in the same order.
func (s *TermSet) Equal(other *TermSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.terms[i].Key() != other.terms[i].Key() {
			return false
		}
	}
	return true
}

// String renders the set as "[a, b, c]".
func (s *TermSet) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if s != nil {
		for i, t := range s.terms {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (*TermSet) result() {}
