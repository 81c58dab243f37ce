package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/termgraph/registry"
)

// NewOperatorsCmd creates the "operators" subcommand.
func NewOperatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "List the registered operators",
		Args:  cobra.NoArgs,
		RunE:  runOperators,
	}
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	return cmd
}

func runOperators(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	defs := registry.Global().All()
	out := cmd.OutOrStdout()
	if format != formatText {
		return writeStructured(out, format, defs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tARITY\tDESCRIPTION")
	for _, def := range defs {
		arity := "any"
		if def.Arity >= 0 {
			arity = fmt.Sprint(def.Arity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, def.Category, arity, def.Description)
	}
	return tw.Flush()
}
