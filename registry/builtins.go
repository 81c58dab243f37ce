package registry

import (
	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/terms"
)

// registerBuiltins registers the reference term operators under their
// symbols and under word aliases usable on a command line.
// Called once by Global() during singleton initialization.
func registerBuiltins(r *Registry) {
	builtin := func(op *core.FuncOperator, alias, category, display string) {
		r.Register(OperatorDef{
			Name:        op.Name(),
			Category:    category,
			DisplayName: display,
			Description: op.Description(),
			Operator:    op,
		})
		r.Register(OperatorDef{
			Name:        alias,
			Category:    category,
			DisplayName: display,
			Description: op.Description(),
			Operator:    op,
		})
	}

	builtin(terms.Sum, "sum", CategoryTerms, "Sum")
	builtin(terms.Remove, "remove", CategoryTerms, "Remove")
	builtin(terms.Interaction, "interaction", CategoryTerms, "Interaction")
	builtin(terms.Crossing, "cross", CategoryTerms, "Crossing")
	builtin(terms.Formula, "formula", CategoryStructural, "Formula")
	builtin(terms.Parts, "parts", CategoryTuple, "Parts")
}
