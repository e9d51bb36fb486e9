package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Store persists completed research runs and their share links.
type Store struct {
	DB *sql.DB
}

// Run is a persisted research run. Result holds the sanitized pipeline
// output as JSON.
type Run struct {
	ID        string
	SessionID string
	Question  string
	Result    []byte
	CreatedAt time.Time
}

// RunSummary is the listing shape: everything except the result payload.
type RunSummary struct {
	ID        string
	Question  string
	HasAnswer bool
	CreatedAt time.Time
}

// Share maps a public share id to a run.
type Share struct {
	ID        string
	RunID     string
	CreatedAt time.Time
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// SaveRun inserts a completed run and returns its generated id.
func (s *Store) SaveRun(ctx context.Context, sessionID, question string, result []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, question, result, created_at) VALUES ($1,$2,$3,$4,NOW())`,
		id, sessionID, question, result)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, bool, error) {
	var r Run
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, session_id, question, result, created_at FROM runs WHERE id=$1`, id).
		Scan(&r.ID, &r.SessionID, &r.Question, &r.Result, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns run summaries for a session, newest first. An empty
// sessionID lists every run; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, sessionID string, limit int) ([]RunSummary, error) {
	q := `SELECT id, question, COALESCE(result->>'final_answer','') <> '', created_at FROM runs`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id=$1`
		args = append(args, sessionID)
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Question, &r.HasAnswer, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearRuns deletes a session's runs and, via cascade, their share
// links. An empty sessionID clears everything.
func (s *Store) ClearRuns(ctx context.Context, sessionID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if sessionID != "" {
		res, err = s.DB.ExecContext(ctx, `DELETE FROM runs WHERE session_id=$1`, sessionID)
	} else {
		res, err = s.DB.ExecContext(ctx, `DELETE FROM runs`)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRunsBefore removes runs created before the cutoff and returns
// the deleted ids. Used by the retention cleaner.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `DELETE FROM runs WHERE created_at < $1 RETURNING id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateShare mints a public share id for a run. Sharing the same run
// twice returns the existing id.
func (s *Store) CreateShare(ctx context.Context, runID string) (string, error) {
	var existing string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM shares WHERE run_id=$1`, runID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO shares (id, run_id, created_at) VALUES ($1,$2,NOW())`, id, runID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetSharedRun resolves a share id to the underlying run.
func (s *Store) GetSharedRun(ctx context.Context, shareID string) (Run, bool, error) {
	var r Run
	err := s.DB.QueryRowContext(ctx, `
SELECT r.id, r.question, r.result, r.created_at
FROM shares s JOIN runs r ON r.id = s.run_id
WHERE s.id=$1`, shareID).
		Scan(&r.ID, &r.Question, &r.Result, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}
