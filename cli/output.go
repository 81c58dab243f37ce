package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
)

// Output formats shared by the commands.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// treeValue is the nested rendering of root, or its one-line summary when
// the expansion is too large to write out.
func treeValue(root *expr.Node) any {
	if !root.Renderable() {
		return root.String()
	}
	return root.Render(true)
}

// resultValue converts a Result into plain data for JSON and YAML output:
// term sets become key lists, tuples lists of key lists and structured
// values maps.
func resultValue(r core.Result) any {
	switch v := r.(type) {
	case *core.TermSet:
		keys := v.Keys()
		if keys == nil {
			keys = []string{}
		}
		return keys
	case core.Tuple:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = resultValue(s)
		}
		return out
	case *core.Structured:
		out := make(map[string]any, v.Len())
		for _, key := range v.Keys() {
			child, _ := v.Get(key)
			out[key] = resultValue(child)
		}
		return out
	default:
		return nil
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return exitError(exitRuntime, "marshaling output: %w", err)
		}
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return exitError(exitRuntime, "marshaling output: %w", err)
		}
		if err := enc.Close(); err != nil {
			return exitError(exitRuntime, "marshaling output: %w", err)
		}
	default:
		return exitError(exitInputParse, "unknown format %q (use text, json, or yaml)", format)
	}
	return nil
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return exitError(exitInputParse, "unknown format %q (use %s, %s, or %s)", format, formatText, formatJSON, formatYAML)
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
