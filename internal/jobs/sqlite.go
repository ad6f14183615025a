package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/castforge-labs/castforge-core/internal/faults"
)

// SQLiteStore persists job records to a local SQLite database so they
// survive restarts. The Store contract is identical to the in-memory
// implementation; the orchestrator does not know which one it holds.
type SQLiteStore struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.With(slog.String("component", "jobstore")), clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS production_jobs (
    id TEXT PRIMARY KEY,
    target_id TEXT NOT NULL,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT '',
    result_location TEXT,
    result_duration_s INTEGER,
    result_segments INTEGER,
    result_size_mb REAL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_target_created ON production_jobs(target_id, created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init job schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, job *Job) error {
	now := s.clock().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO production_jobs(id, target_id, status, progress, message, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.TargetID, string(job.Status), job.Progress, job.Message,
		now.Format(sqliteTimeLayout), now.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobs+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (s *SQLiteStore) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = s.clock().UTC()
	var loc any
	var durationS, segments any
	var sizeMB any
	if job.Result != nil {
		loc = job.Result.Location
		durationS = job.Result.DurationSeconds
		segments = job.Result.SegmentCount
		sizeMB = job.Result.FileSizeMB
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE production_jobs
		 SET status = ?, progress = ?, message = ?,
		     result_location = ?, result_duration_s = ?, result_segments = ?, result_size_mb = ?,
		     updated_at = ?
		 WHERE id = ?`,
		string(job.Status), job.Progress, job.Message,
		loc, durationS, segments, sizeMB,
		job.UpdatedAt.Format(sqliteTimeLayout), job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return faults.NotFound("job %s not found", job.ID)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Job, error) {
	return s.query(ctx, selectJobs+` ORDER BY created_at DESC, id DESC`)
}

func (s *SQLiteStore) ListByTarget(ctx context.Context, targetID string) ([]*Job, error) {
	return s.query(ctx, selectJobs+` WHERE target_id = ? ORDER BY created_at DESC, id DESC`, targetID)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM production_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if affected == 0 {
		return faults.NotFound("job %s not found", id)
	}
	return nil
}

// sqliteTimeLayout keeps nanoseconds fixed-width so string comparison in
// ORDER BY matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectJobs = `SELECT id, target_id, status, progress, message,
    result_location, result_duration_s, result_segments, result_size_mb,
    created_at, updated_at FROM production_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job       Job
		status    string
		loc       sql.NullString
		durationS sql.NullInt64
		segments  sql.NullInt64
		sizeMB    sql.NullFloat64
		created   string
		updated   string
	)
	if err := row.Scan(&job.ID, &job.TargetID, &status, &job.Progress, &job.Message,
		&loc, &durationS, &segments, &sizeMB, &created, &updated); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if loc.Valid {
		job.Result = &Result{
			Location:        loc.String,
			DurationSeconds: int(durationS.Int64),
			SegmentCount:    int(segments.Int64),
			FileSizeMB:      sizeMB.Float64,
		}
	}
	if ts, err := time.Parse(sqliteTimeLayout, created); err == nil {
		job.CreatedAt = ts
	}
	if ts, err := time.Parse(sqliteTimeLayout, updated); err == nil {
		job.UpdatedAt = ts
	}
	return &job, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
