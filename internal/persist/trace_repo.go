package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/storechase/server/internal/trace"
)

var sampleColumns = []string{"run_id", "tick", "name", "x", "y", "z", "yaw", "state", "sprint"}

type TraceRepo struct {
	db *DB
}

func NewTraceRepo(db *DB) *TraceRepo {
	return &TraceRepo{db: db}
}

// StartRun opens a trace run and returns its id.
func (r *TraceRepo) StartRun(ctx context.Context, level string, seed int64) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO trace_runs (level, seed) VALUES ($1, $2) RETURNING id`,
		level, seed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start trace run: %w", err)
	}
	return id, nil
}

// EndRun stamps the run's end time.
func (r *TraceRepo) EndRun(ctx context.Context, runID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE trace_runs SET ended_at = now() WHERE id = $1`, runID,
	)
	return err
}

// InsertSamples copies a batch into trace_samples in one transaction.
func (r *TraceRepo) InsertSamples(ctx context.Context, runID int64, batch []trace.Sample) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("trace begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"trace_samples"},
		sampleColumns,
		pgx.CopyFromRows(sampleRows(runID, batch)),
	); err != nil {
		return fmt.Errorf("trace copy: %w", err)
	}
	return tx.Commit(ctx)
}

// Samples loads a run in tick order.
func (r *TraceRepo) Samples(ctx context.Context, runID int64) ([]trace.Sample, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, name, x, y, z, yaw, state, sprint
		 FROM trace_samples WHERE run_id = $1 ORDER BY tick, name`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trace.Sample
	for rows.Next() {
		var s trace.Sample
		var tick int64
		if err := rows.Scan(&tick, &s.Name, &s.X, &s.Y, &s.Z, &s.Yaw, &s.State, &s.Sprint); err != nil {
			return nil, err
		}
		s.Tick = uint64(tick)
		out = append(out, s)
	}
	return out, rows.Err()
}

func sampleRows(runID int64, batch []trace.Sample) [][]any {
	rows := make([][]any, len(batch))
	for i, s := range batch {
		rows[i] = []any{runID, int64(s.Tick), s.Name, s.X, s.Y, s.Z, s.Yaw, s.State, s.Sprint}
	}
	return rows
}

// TraceSink adapts a TraceRepo run to trace.Sink.
type TraceSink struct {
	repo  *TraceRepo
	runID int64
}

// NewTraceSink opens a run and returns a sink writing into it.
func NewTraceSink(ctx context.Context, repo *TraceRepo, level string, seed int64) (*TraceSink, error) {
	id, err := repo.StartRun(ctx, level, seed)
	if err != nil {
		return nil, err
	}
	return &TraceSink{repo: repo, runID: id}, nil
}

func (s *TraceSink) RunID() int64 { return s.runID }

func (s *TraceSink) WriteSamples(ctx context.Context, batch []trace.Sample) error {
	return s.repo.InsertSamples(ctx, s.runID, batch)
}

func (s *TraceSink) Close() error {
	return s.repo.EndRun(context.Background(), s.runID)
}
