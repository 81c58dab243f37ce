package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Graph errors
var (
	// ErrMalformedTree reports an expression structure that is not a finite
	// acyclic tree of nodes. Every error returned by Build matches it.
	ErrMalformedTree = errors.New("malformed expression tree")

	// ErrCycleDetected reports a node that is its own descendant.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrNodeLimit reports a tree with more reachable nodes than allowed.
	ErrNodeLimit = errors.New("node limit exceeded")

	// ErrNotReady is returned by Scheduler.Done for a node it never handed out.
	ErrNotReady = errors.New("node is not ready")
)

// GraphError wraps a dependency graph construction failure.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedTree, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedTree, e.Kind, e.Msg)
}

// Unwrap returns the specific kind and ErrMalformedTree.
func (e *GraphError) Unwrap() []error {
	if e.Kind == ErrMalformedTree {
		return []error{ErrMalformedTree}
	}
	return []error{e.Kind, ErrMalformedTree}
}

func malformedf(format string, args ...any) error {
	return &GraphError{Kind: ErrMalformedTree, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := ""
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycleDetected, Msg: msg}
}
