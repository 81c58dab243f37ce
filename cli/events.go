package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/termgraph/bus"
	"github.com/petal-labs/termgraph/runtime"
)

// NewEventsCmd creates the "events" subcommand.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events [eval-id]",
		Short: "Inspect the evaluation event log",
		Long: `Without arguments, list the evaluation IDs recorded in the event log.
With an evaluation ID, print its events in sequence order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEvents,
	}

	cmd.Flags().String("store", "", "SQLite DSN of the event log (default: store.dsn from config)")
	cmd.Flags().Uint64("after", 0, "Only print events with a sequence number above this")
	cmd.Flags().Int("limit", 0, "Maximum number of events to print (0 = all)")
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	return cmd
}

// eventRecord is the JSON/YAML shape of one stored event.
type eventRecord struct {
	Seq      uint64         `json:"seq" yaml:"seq"`
	Kind     string         `json:"kind" yaml:"kind"`
	NodeID   string         `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Operator string         `json:"operator,omitempty" yaml:"operator,omitempty"`
	Time     time.Time      `json:"time" yaml:"time"`
	Elapsed  string         `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Payload  map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
	TraceID  string         `json:"trace_id,omitempty" yaml:"trace_id,omitempty"`
	SpanID   string         `json:"span_id,omitempty" yaml:"span_id,omitempty"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dsn, _ := cmd.Flags().GetString("store")
	if dsn == "" {
		dsn = cfg.Store.DSN
	}
	if dsn == "" {
		return exitError(exitInputParse, "no event store configured (use --store or store.dsn)")
	}

	store, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{DSN: dsn})
	if err != nil {
		return exitError(exitRuntime, "opening event store: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if len(args) == 0 {
		ids, err := store.EvalIDs(ctx)
		if err != nil {
			return exitError(exitRuntime, "listing evaluations: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		if format != formatText {
			return writeStructured(out, format, ids)
		}
		for _, id := range ids {
			fprintln(out, id)
		}
		return nil
	}

	after, _ := cmd.Flags().GetUint64("after")
	limit, _ := cmd.Flags().GetInt("limit")
	events, err := store.List(ctx, args[0], after, limit)
	if err != nil {
		return exitError(exitRuntime, "listing events: %w", err)
	}
	if len(events) == 0 && after == 0 {
		return exitError(exitFileNotFound, "no events recorded for evaluation %q", args[0])
	}

	if format != formatText {
		records := make([]eventRecord, len(events))
		for i, e := range events {
			records[i] = toRecord(e)
		}
		return writeStructured(out, format, records)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tKIND\tNODE\tOPERATOR\tELAPSED\tPAYLOAD")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Kind, e.NodeID, e.Operator, elapsedString(e.Elapsed), payloadString(e.Payload))
	}
	return tw.Flush()
}

func toRecord(e runtime.Event) eventRecord {
	return eventRecord{
		Seq:      e.Seq,
		Kind:     e.Kind.String(),
		NodeID:   e.NodeID,
		Operator: e.Operator,
		Time:     e.Time,
		Elapsed:  elapsedString(e.Elapsed),
		Payload:  e.Payload,
		TraceID:  e.TraceID,
		SpanID:   e.SpanID,
	}
}

func elapsedString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// payloadString renders a payload as sorted key=value pairs.
func payloadString(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}
