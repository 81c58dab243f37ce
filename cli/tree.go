package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/registry"
	"github.com/petal-labs/termgraph/terms"
)

// addTreeFlags registers the flags that describe a synthetic expression tree.
func addTreeFlags(cmd *cobra.Command) {
	cmd.Flags().String("op", "+", "Operator folded over the factors (see `termgraph operators`)")
	cmd.Flags().String("shape", string(expr.ShapeBalanced), "Tree shape: left | right | balanced | shared")
	cmd.Flags().StringSlice("factors", nil, "Factor names (comma separated or repeated)")
	cmd.Flags().IntP("n", "n", 0, "Generate n factors x0..x{n-1} when --factors is not set")
	cmd.Flags().String("lhs", "", "Response factor; wraps the tree as lhs ~ tree")
	cmd.Flags().Bool("intercept", false, "Append the intercept term 1 to the factors")
}

// buildTree assembles the expression tree described by the tree flags.
func buildTree(cmd *cobra.Command) (*expr.Node, error) {
	opName, _ := cmd.Flags().GetString("op")
	shape, _ := cmd.Flags().GetString("shape")
	names, _ := cmd.Flags().GetStringSlice("factors")
	n, _ := cmd.Flags().GetInt("n")
	lhs, _ := cmd.Flags().GetString("lhs")
	intercept, _ := cmd.Flags().GetBool("intercept")

	op, ok := registry.Global().Operator(strings.TrimSpace(opName))
	if !ok {
		return nil, exitError(exitValidation, "unknown operator %q", opName)
	}
	if op.Structural() {
		return nil, exitError(exitValidation, "operator %q cannot be folded; use --lhs to build a formula", opName)
	}

	if len(names) == 0 {
		if n <= 0 {
			return nil, exitError(exitInputParse, "either --factors or a positive --n is required")
		}
		names = make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("x%d", i)
		}
	}

	args := make([]expr.Arg, 0, len(names)+1)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, exitError(exitInputParse, "factor names must not be empty")
		}
		args = append(args, terms.Factor(name))
	}
	if intercept {
		args = append(args, terms.Intercept{})
	}

	var root *expr.Node
	if len(args) == 1 {
		root = expr.New(op, args[0])
	} else {
		var err error
		if root, err = expr.Build(expr.Shape(shape), op, args); err != nil {
			return nil, exitError(exitValidation, "building tree: %w", err)
		}
	}

	if lhs = strings.TrimSpace(lhs); lhs != "" {
		root = expr.New(terms.Formula, terms.Factor(lhs), root)
	}
	return root, nil
}

// parseContext applies --context key=value pairs and --ordering on top of base.
func parseContext(cmd *cobra.Command, base core.EvalContext) (core.EvalContext, error) {
	ctx := base.Clone()
	pairs, _ := cmd.Flags().GetStringArray("context")
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, exitError(exitInputParse, "invalid --context %q (want key=value)", kv)
		}
		ctx[strings.TrimSpace(key)] = value
	}
	if ordering, _ := cmd.Flags().GetString("ordering"); ordering != "" {
		ctx[terms.OrderingKey] = ordering
	}
	return ctx, nil
}
