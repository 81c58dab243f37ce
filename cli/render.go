package cli

import (
	"github.com/spf13/cobra"
)

// NewRenderCmd creates the "render" subcommand.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print an expression tree without evaluating it",
		Long: `Build the same tree "eval" would and print it.

The text format is the compact node form; json and yaml print the nested
[operator, args...] rendering. Trees too large to print in full are
summarized as "<Node op: ...>".`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}

	addTreeFlags(cmd)
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	return cmd
}

func runRender(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	root, err := buildTree(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatText {
		fprintln(out, root.String())
		return nil
	}
	return writeStructured(out, format, treeValue(root))
}
