package bus

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petal-labs/termgraph/runtime"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const eventColumns = `eval_id, seq, kind, node_id, operator, time, elapsed, payload, trace_id, span_id`

// SQLiteStoreConfig describes where the evaluation log lives and how much of
// it is kept.
type SQLiteStoreConfig struct {
	// DSN names the database: a file path, or "file::memory:?cache=shared"
	// for a log that disappears with the process.
	DSN string

	// RetentionAge drops events recorded more than this long ago. Zero keeps
	// them regardless of age.
	RetentionAge time.Duration

	// RetentionCount caps the events kept per evaluation, newest first.
	// Zero means no cap.
	RetentionCount int

	// PruneInterval spaces background retention passes. Defaults to an hour.
	PruneInterval time.Duration
}

// SQLiteEventStore is the durable evaluation log read back by
// "termgraph events". Each row is one event, unique per (eval_id, seq).
// With retention configured, a goroutine trims the log on PruneInterval
// until Close.
type SQLiteEventStore struct {
	db   *sql.DB
	cfg  SQLiteStoreConfig
	stop chan struct{}
	done chan struct{}
}

// NewSQLiteEventStore opens the log at cfg.DSN, creating the events table on
// first use.
func NewSQLiteEventStore(cfg SQLiteStoreConfig) (*SQLiteEventStore, error) {
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}

	db, err := openEventDB(cfg.DSN)
	if err != nil {
		return nil, err
	}

	s := &SQLiteEventStore{
		db:   db,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if s.retains() {
		go s.pruneLoop()
	} else {
		close(s.done)
	}
	return s, nil
}

func openEventDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("event log: open %q: %w", dsn, err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("event log: prepare %q: %w", dsn, err)
		}
	}
	return db, nil
}

func (s *SQLiteEventStore) retains() bool {
	return s.cfg.RetentionAge > 0 || s.cfg.RetentionCount > 0
}

// Append records one event. A second event with the same EvalID and Seq is
// rejected.
func (s *SQLiteEventStore) Append(ctx context.Context, event runtime.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("event log: encode payload of %s #%d: %w", event.EvalID, event.Seq, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EvalID,
		event.Seq,
		string(event.Kind),
		event.NodeID,
		event.Operator,
		event.Time.UTC().Format(time.RFC3339Nano),
		int64(event.Elapsed),
		string(encoded),
		event.TraceID,
		event.SpanID,
	)
	if err != nil {
		return fmt.Errorf("event log: append %s #%d: %w", event.EvalID, event.Seq, err)
	}
	return nil
}

// List replays an evaluation's events after afterSeq in Seq order. A limit of
// zero or less returns all of them.
func (s *SQLiteEventStore) List(ctx context.Context, evalID string, afterSeq uint64, limit int) ([]runtime.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE eval_id = ? AND seq > ? ORDER BY seq ASC`
	args := []any{evalID, afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("event log: list %s: %w", evalID, err)
	}
	defer rows.Close()

	var events []runtime.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("event log: list %s: %w", evalID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestSeq is the last Seq recorded for evalID, or 0 for an unknown
// evaluation.
func (s *SQLiteEventStore) LatestSeq(ctx context.Context, evalID string) (uint64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE eval_id = ?`, evalID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("event log: latest seq of %s: %w", evalID, err)
	}
	if !seq.Valid || seq.Int64 < 0 {
		return 0, nil
	}
	return uint64(seq.Int64), nil // #nosec G115 -- checked non-negative above
}

// EvalIDs lists every evaluation with at least one stored event, sorted.
func (s *SQLiteEventStore) EvalIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT eval_id FROM events ORDER BY eval_id`)
	if err != nil {
		return nil, fmt.Errorf("event log: eval ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("event log: eval ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close waits for an in-flight retention pass, then releases the database.
func (s *SQLiteEventStore) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return s.db.Close()
}

// Prune applies the retention rules once: first by age across the whole log,
// then by count within each evaluation.
func (s *SQLiteEventStore) Prune(ctx context.Context) error {
	if s.cfg.RetentionAge > 0 {
		cutoff := time.Now().Add(-s.cfg.RetentionAge).UTC().Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE time < ?`, cutoff); err != nil {
			return fmt.Errorf("event log: prune older than %s: %w", s.cfg.RetentionAge, err)
		}
	}
	if s.cfg.RetentionCount <= 0 {
		return nil
	}

	ids, err := s.EvalIDs(ctx)
	if err != nil {
		return err
	}
	for _, evalID := range ids {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM events WHERE eval_id = ? AND id NOT IN (
				SELECT id FROM events WHERE eval_id = ? ORDER BY seq DESC LIMIT ?
			)`, evalID, evalID, s.cfg.RetentionCount,
		); err != nil {
			return fmt.Errorf("event log: trim %s to %d events: %w", evalID, s.cfg.RetentionCount, err)
		}
	}
	return nil
}

func (s *SQLiteEventStore) pruneLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.Prune(context.Background())
		}
	}
}

// scanEvent decodes the current row, selected as eventColumns.
func scanEvent(rows *sql.Rows) (runtime.Event, error) {
	var (
		e       runtime.Event
		kind    string
		stamp   string
		elapsed int64
		payload string
	)
	if err := rows.Scan(&e.EvalID, &e.Seq, &kind, &e.NodeID, &e.Operator,
		&stamp, &elapsed, &payload, &e.TraceID, &e.SpanID); err != nil {
		return runtime.Event{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return runtime.Event{}, fmt.Errorf("seq %d: time %q: %w", e.Seq, stamp, err)
	}
	e.Kind = runtime.EventKind(kind)
	e.Time = t
	e.Elapsed = time.Duration(elapsed)

	e.Payload = map[string]any{}
	if payload != "" && payload != "{}" {
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return runtime.Event{}, fmt.Errorf("seq %d: payload: %w", e.Seq, err)
		}
	}
	return e, nil
}

var _ EventStore = (*SQLiteEventStore)(nil)
