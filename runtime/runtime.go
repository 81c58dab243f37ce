// Package runtime provides the evaluation engine for expression trees.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/graph"
)

// ErrNilResult is the cause of a NodeError whose operator returned no result.
var ErrNilResult = errors.New("operator returned no result")

// EvalOptions controls evaluation behavior.
type EvalOptions struct {
	// EvalID identifies the evaluation in events and logs.
	// If empty, a random UUID is generated.
	EvalID string

	// MaxNodes bounds the number of distinct nodes reachable from the root
	// (0 = unbounded). Larger trees fail with graph.ErrNodeLimit.
	MaxNodes int

	// Now provides the current time (for testing). If nil, uses time.Now.
	Now func() time.Time

	// Logger receives debug and warning logs. If nil, slog.Default() is used.
	Logger *slog.Logger

	// EventHandler receives events during evaluation.
	EventHandler EventHandler

	// EventEmitterDecorator wraps the internal event emitter.
	EventEmitterDecorator EventEmitterDecorator

	// EventBus distributes events to subscribers.
	EventBus EventPublisher
}

// DefaultEvalOptions returns options with no event sinks and no node bound.
func DefaultEvalOptions() EvalOptions {
	return EvalOptions{}
}

// Evaluator evaluates expression trees into term results. It holds no state
// between calls and is safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a new evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates root with default options.
func Evaluate(ctx context.Context, root *expr.Node, evalCtx core.EvalContext) (core.Result, error) {
	return NewEvaluator().Evaluate(ctx, root, evalCtx, DefaultEvalOptions())
}

// Evaluate produces the result of root. Nodes are processed only after all of
// their node-typed children, using an explicit scheduler instead of recursion,
// so stack use does not grow with tree depth. A node shared by several parents
// is evaluated once. The first failing node aborts the evaluation and no
// result is returned.
//
// ctx is checked between nodes; evalCtx is passed unchanged to every operator
// and leaf.
func (e *Evaluator) Evaluate(ctx context.Context, root *expr.Node, evalCtx core.EvalContext, opts EvalOptions) (core.Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	evalID := opts.EvalID
	if evalID == "" {
		evalID = uuid.NewString()
	}

	emit := newEmitter(opts)
	start := opts.Now()
	if emit != nil {
		emit(NewEvent(EventEvalStarted, evalID).WithTime(start))
	}
	logger.Debug("evaluation started", "eval_id", evalID)

	result, nodes, err := e.run(ctx, root, evalCtx, opts, emit, evalID)

	elapsed := opts.Now().Sub(start)
	if emit != nil {
		finish := NewEvent(EventEvalFinished, evalID).
			WithTime(opts.Now()).
			WithElapsed(elapsed).
			WithPayload("nodes", nodes)
		if err != nil {
			finish = finish.
				WithPayload("status", "failed").
				WithPayload("error", err.Error())
		} else {
			finish = finish.
				WithPayload("status", "completed").
				WithPayload("variant", core.Describe(result)).
				WithPayload("terms", core.CountTerms(result))
		}
		emit(finish)
	}

	if err != nil {
		logger.Warn("evaluation failed", "eval_id", evalID, "nodes", nodes, "error", err)
		return nil, err
	}
	logger.Debug("evaluation finished",
		"eval_id", evalID,
		"nodes", nodes,
		"variant", core.Describe(result),
		"elapsed", elapsed,
	)
	return result, nil
}

// run builds the dependency graph and drains the scheduler. It returns the
// number of distinct nodes alongside the root result.
func (e *Evaluator) run(
	ctx context.Context,
	root *expr.Node,
	evalCtx core.EvalContext,
	opts EvalOptions,
	emit EventEmitter,
	evalID string,
) (core.Result, int, error) {
	deps, err := graph.Build(root, graph.WithMaxNodes(opts.MaxNodes))
	if err != nil {
		return nil, 0, err
	}

	sched := graph.NewScheduler(deps)
	results := make([]core.Result, deps.Len())

	for sched.Active() {
		for _, idx := range sched.Ready() {
			if err := ctx.Err(); err != nil {
				return nil, deps.Len(), fmt.Errorf("%w: %w", ErrEvaluationCanceled, err)
			}

			r, err := e.evaluateNode(deps, idx, results, evalCtx, opts, emit, evalID)
			if err != nil {
				return nil, deps.Len(), err
			}
			results[idx] = r

			if err := sched.Done(idx); err != nil {
				return nil, deps.Len(), err
			}
		}
	}

	if !sched.Finished() {
		return nil, deps.Len(), fmt.Errorf("%w: %d of %d nodes never became ready",
			graph.ErrMalformedTree, deps.Len()-countDone(results), deps.Len())
	}
	return results[0], deps.Len(), nil
}

// evaluateNode assembles the node's argument results and applies its operator.
func (e *Evaluator) evaluateNode(
	deps *graph.Dependencies,
	idx int,
	results []core.Result,
	evalCtx core.EvalContext,
	opts EvalOptions,
	emit EventEmitter,
	evalID string,
) (core.Result, error) {
	node := deps.Node(idx)
	op := node.Operator()
	nodeID := fmt.Sprintf("n%d", idx)
	opName := ""
	if op != nil {
		opName = op.Name()
	}

	nodeStart := opts.Now()
	if emit != nil {
		emit(NewEvent(EventNodeStarted, evalID).
			WithTime(nodeStart).
			WithNode(nodeID, opName).
			WithPayload("args", node.NumArgs()))
	}

	fail := func(cause error) error {
		nodeErr := &NodeError{Index: idx, Operator: opName, Expr: node, Err: cause}
		if emit != nil {
			emit(NewEvent(EventNodeFailed, evalID).
				WithTime(opts.Now()).
				WithNode(nodeID, opName).
				WithElapsed(opts.Now().Sub(nodeStart)).
				WithPayload("error", cause.Error()))
		}
		return nodeErr
	}

	if op == nil {
		return nil, fail(ErrNilOperator)
	}

	args := make([]core.Result, node.NumArgs())
	for i := range args {
		switch a := node.Arg(i).(type) {
		case *expr.Node:
			ci, _ := deps.Index(a)
			args[i] = results[ci]
		case core.Leaf:
			r, err := a.ToTerms(evalCtx)
			if err != nil {
				return nil, fail(fmt.Errorf("leaf %d (%s): %w", i, a, err))
			}
			args[i] = r
		default:
			return nil, fail(fmt.Errorf("%w: argument %d has type %T", ErrUnsupportedArg, i, a))
		}
	}

	var (
		r   core.Result
		err error
	)
	if !op.Structural() && !core.AnyStructured(args) {
		r, err = op.Apply(args, evalCtx)
	} else {
		r, err = core.Merge(args, func(a []core.Result) (core.Result, error) {
			return op.Apply(a, evalCtx)
		})
	}
	if err != nil {
		return nil, fail(err)
	}
	if r == nil {
		return nil, fail(ErrNilResult)
	}

	if emit != nil {
		emit(NewEvent(EventNodeFinished, evalID).
			WithTime(opts.Now()).
			WithNode(nodeID, opName).
			WithElapsed(opts.Now().Sub(nodeStart)).
			WithPayload("variant", core.Describe(r)).
			WithPayload("terms", core.CountTerms(r)))
	}
	return r, nil
}

// newEmitter returns nil when no sink is configured so that evaluations of
// large trees without observers do not allocate events.
func newEmitter(opts EvalOptions) EventEmitter {
	if opts.EventHandler == nil && opts.EventBus == nil {
		return nil
	}
	seq := &seqGen{}
	emit := func(e Event) {
		e.Seq = seq.next()
		if opts.EventBus != nil {
			opts.EventBus.Publish(e)
		}
		if opts.EventHandler != nil {
			opts.EventHandler(e)
		}
	}
	if opts.EventEmitterDecorator != nil {
		emit = opts.EventEmitterDecorator(emit)
	}
	return emit
}

func countDone(results []core.Result) int {
	n := 0
	for _, r := range results {
		if r != nil {
			n++
		}
	}
	return n
}
