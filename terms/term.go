// Package terms is a reference term algebra for model formulas.
//
// A Term is a product of named factors: "a" is a main effect, "a:b" an
// interaction and the empty product "1" the intercept. Leaves (Factor,
// Intercept, Zero) evaluate to single-term collections and the operators in
// this package combine collections the way formula languages do.
package terms

import (
	"slices"
	"strings"

	"github.com/petal-labs/termgraph/core"
)

// InterceptKey is the key of the intercept term.
const InterceptKey = "1"

// Term is an interaction of zero or more factors. Factors are kept sorted and
// unique, so a:b and b:a are the same term.
type Term struct {
	factors []string
}

// NewTerm creates the interaction of the given factors.
func NewTerm(factors ...string) Term {
	fs := make([]string, 0, len(factors))
	for _, f := range factors {
		if f != "" {
			fs = append(fs, f)
		}
	}
	slices.Sort(fs)
	return Term{factors: slices.Compact(fs)}
}

// Factors returns a copy of the term's factors in sorted order.
func (t Term) Factors() []string {
	return slices.Clone(t.factors)
}

// Degree returns the number of factors. The intercept has degree 0.
func (t Term) Degree() int { return len(t.factors) }

// Key returns the factors joined by ":", or "1" for the intercept.
func (t Term) Key() string {
	if len(t.factors) == 0 {
		return InterceptKey
	}
	return strings.Join(t.factors, ":")
}

// String returns the term's key.
func (t Term) String() string { return t.Key() }

// Interact returns the term containing the factors of both t and o.
func (t Term) Interact(o Term) Term {
	fs := make([]string, 0, len(t.factors)+len(o.factors))
	fs = append(fs, t.factors...)
	fs = append(fs, o.factors...)
	return NewTerm(fs...)
}

// Factor is a leaf naming a single variable.
type Factor string

// String returns the variable name.
func (f Factor) String() string { return string(f) }

// ToTerms returns the collection holding the main-effect term of f.
func (f Factor) ToTerms(core.EvalContext) (core.Result, error) {
	if f == "" {
		return nil, ErrEmptyFactor
	}
	return core.NewTermSet(NewTerm(string(f))), nil
}

// Intercept is the "1" leaf.
type Intercept struct{}

// String returns "1".
func (Intercept) String() string { return InterceptKey }

// ToTerms returns the collection holding the intercept term.
func (Intercept) ToTerms(core.EvalContext) (core.Result, error) {
	return core.NewTermSet(NewTerm()), nil
}

// Zero is the "0" leaf. It evaluates to the empty collection.
type Zero struct{}

// String returns "0".
func (Zero) String() string { return "0" }

// ToTerms returns an empty collection.
func (Zero) ToTerms(core.EvalContext) (core.Result, error) {
	return core.NewTermSet(), nil
}

// Factors converts names into Factor leaves.
func Factors(names ...string) []Factor {
	out := make([]Factor, len(names))
	for i, n := range names {
		out[i] = Factor(n)
	}
	return out
}

var (
	_ core.Term = Term{}
	_ core.Leaf = Factor("")
	_ core.Leaf = Intercept{}
	_ core.Leaf = Zero{}
)
