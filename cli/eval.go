package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/termgraph/bus"
	"github.com/petal-labs/termgraph/config"
	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/graph"
	tgotel "github.com/petal-labs/termgraph/otel"
	"github.com/petal-labs/termgraph/runtime"
)

// NewEvalCmd creates the "eval" subcommand.
func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a synthetic expression tree",
		Long: `Build an expression tree by folding an operator over factors and evaluate it.

Examples:
  termgraph eval --factors a,b,c --op '*'
  termgraph eval -n 5000 --shape left
  termgraph eval --factors a,b --op '*' --lhs y --ordering sort --format json`,
		Args: cobra.NoArgs,
		RunE: runEval,
	}

	addTreeFlags(cmd)
	cmd.Flags().String("ordering", "", "Formula term ordering: none | degree | sort")
	cmd.Flags().StringArray("context", nil, "Evaluation context entry key=value (repeatable)")
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	cmd.Flags().Bool("show-tree", false, "Include the rendered tree in the output")
	cmd.Flags().Duration("timeout", 30*time.Second, "Evaluation timeout")
	cmd.Flags().Int("max-nodes", 0, "Refuse trees with more distinct nodes (0 = no limit)")
	cmd.Flags().String("eval-id", "", "Evaluation ID (default: random UUID)")
	cmd.Flags().String("store", "", "SQLite DSN for the evaluation event log")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP collector URL for evaluation traces")
	cmd.Flags().String("service-name", "", "service.name reported with traces")

	return cmd
}

// evalReport is the JSON/YAML shape written by eval.
type evalReport struct {
	EvalID  string `json:"eval_id" yaml:"eval_id"`
	Nodes   int    `json:"nodes" yaml:"nodes"`
	Variant string `json:"variant" yaml:"variant"`
	Terms   int    `json:"terms" yaml:"terms"`
	Result  any    `json:"result" yaml:"result"`
	Tree    any    `json:"tree,omitempty" yaml:"tree,omitempty"`
}

func runEval(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	root, err := buildTree(cmd)
	if err != nil {
		return err
	}
	evalCtx, err := parseContext(cmd, cfg.EvalContext())
	if err != nil {
		return err
	}

	opts := evalOptions(cmd, cfg, logger)

	sinks, err := openSinks(cmd, cfg, logger, &opts)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, evalErr := runtime.NewEvaluator().Evaluate(ctx, root, evalCtx, opts)
	sinks.close(logger)
	if evalErr != nil {
		return evalError(ctx, timeout, evalErr)
	}

	return writeEvalResult(cmd.OutOrStdout(), cmd, format, opts.EvalID, root, result)
}

func evalOptions(cmd *cobra.Command, cfg config.Config, logger *slog.Logger) runtime.EvalOptions {
	opts := runtime.DefaultEvalOptions()
	opts.Logger = logger
	opts.MaxNodes = cfg.Eval.MaxNodes
	if cmd.Flags().Changed("max-nodes") {
		opts.MaxNodes, _ = cmd.Flags().GetInt("max-nodes")
	}
	opts.EvalID, _ = cmd.Flags().GetString("eval-id")
	if opts.EvalID == "" {
		opts.EvalID = uuid.NewString()
	}
	return opts
}

// evalSinks owns the observers attached to one evaluation.
type evalSinks struct {
	bus       *bus.MemBus
	forwarded chan struct{}
	store     *bus.SQLiteEventStore
	shutdown  func(context.Context) error
}

// openSinks wires the event log and tracing requested by flags or config
// into opts.
func openSinks(cmd *cobra.Command, cfg config.Config, logger *slog.Logger, opts *runtime.EvalOptions) (*evalSinks, error) {
	s := &evalSinks{}
	var handlers []runtime.EventHandler

	dsn, _ := cmd.Flags().GetString("store")
	if dsn == "" {
		dsn = cfg.Store.DSN
	}
	if dsn != "" {
		store, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{
			DSN:            dsn,
			RetentionCount: cfg.Store.RetentionCount,
			RetentionAge:   cfg.Store.RetentionAge,
		})
		if err != nil {
			return nil, exitError(exitRuntime, "opening event store: %w", err)
		}
		s.store = store
		s.bus = bus.NewMemBus(bus.MemBusConfig{})
		s.forwarded = make(chan struct{})
		sub := s.bus.Subscribe(opts.EvalID)
		persist := bus.NewStoreSubscriber(store, logger)
		go func() {
			defer close(s.forwarded)
			bus.Forward(sub, persist.Handle)
		}()
		opts.EventBus = s.bus
	}

	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	if endpoint == "" {
		endpoint = cfg.Telemetry.OTLPEndpoint
	}
	if endpoint != "" {
		service, _ := cmd.Flags().GetString("service-name")
		if service == "" {
			service = cfg.Telemetry.ServiceName
		}
		tp, err := tgotel.NewTracerProvider(cmd.Context(), endpoint, service)
		if err != nil {
			s.close(logger)
			return nil, exitError(exitValidation, "configuring tracing: %w", err)
		}
		s.shutdown = tp.Shutdown
		tracing := tgotel.NewTracingHandler(tp.Tracer("termgraph"))
		handlers = append(handlers, tracing.Handle)
		opts.EventEmitterDecorator = tgotel.Decorator(tracing)

		metrics, err := tgotel.NewMetricsHandler(otelapi.GetMeterProvider().Meter("termgraph"))
		if err != nil {
			logger.Warn("metrics disabled", "error", err)
		} else {
			handlers = append(handlers, metrics.Handle)
		}
	}

	if len(handlers) > 0 {
		opts.EventHandler = runtime.MultiEventHandler(handlers...)
	}
	return s, nil
}

// close flushes every sink. Close errors are logged.
func (s *evalSinks) close(logger *slog.Logger) {
	if s.bus != nil {
		_ = s.bus.Close()
		<-s.forwarded
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("closing event store", "error", err)
		}
	}
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.shutdown(ctx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}
}

func evalError(ctx context.Context, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return exitError(exitTimeout, "evaluation timed out after %s", timeout)
	}
	if errors.Is(err, graph.ErrMalformedTree) {
		return exitError(exitValidation, "invalid tree: %w", err)
	}
	return exitError(exitRuntime, "evaluation failed: %w", err)
}

func writeEvalResult(w io.Writer, cmd *cobra.Command, format, evalID string, root *expr.Node, result core.Result) error {
	showTree, _ := cmd.Flags().GetBool("show-tree")

	if format == formatText {
		if showTree {
			fprintln(w, root.String())
		}
		fprintln(w, result.String())
		return nil
	}

	report := evalReport{
		EvalID:  evalID,
		Nodes:   countNodes(root),
		Variant: core.Describe(result),
		Terms:   core.CountTerms(result),
		Result:  resultValue(result),
	}
	if showTree {
		report.Tree = treeValue(root)
	}
	return writeStructured(w, format, report)
}

func countNodes(root *expr.Node) int {
	deps, err := graph.Build(root)
	if err != nil {
		return 0
	}
	return deps.Len()
}
