// Package journal keeps a local sqlite record of failed sends. Only metadata
// is stored; message text never leaves process memory.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agent-chat/internal/agent"
	"agent-chat/internal/chat"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Entry struct {
	ID        int64
	SessionID string
	Seq       int
	At        time.Time
	Kind      string
	Status    int
	Chars     int
	Error     string
}

type Journal struct {
	dbPath string
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

func Open(dbPath string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	j := &Journal{dbPath: dbPath, db: db, logger: logger}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Path() string { return j.dbPath }

func (j *Journal) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS failures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			status INTEGER,
			chars INTEGER,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON failures(ts, id);`,
		`CREATE INDEX IF NOT EXISTS idx_failures_session ON failures(session_id);`,
	}

	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (j *Journal) Record(ctx context.Context, f chat.Failure) error {
	kind := "unknown"
	status := 0
	if k, s, ok := agent.KindOf(f.Err); ok {
		kind = k.String()
		status = s
	}
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO failures(session_id, seq, ts, kind, status, chars, error) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		f.SessionID, f.Seq, at.UnixMilli(), kind, nullableStatus(status), f.Chars, msg,
	)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

// ReportFailure lets the journal act as a chat.FailureReporter. A write error
// is logged, never surfaced to the session.
func (j *Journal) ReportFailure(ctx context.Context, f chat.Failure) {
	if err := j.Record(ctx, f); err != nil {
		j.logger.Error("journal write failed", zap.String("path", j.dbPath), zap.Error(err))
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, ts, kind, status, chars, error
		FROM failures
		ORDER BY ts DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e      Entry
			ts     int64
			status sql.NullInt64
			chars  sql.NullInt64
			msg    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &ts, &e.Kind, &status, &chars, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		e.At = time.UnixMilli(ts)
		e.Status = int(status.Int64)
		e.Chars = int(chars.Int64)
		e.Error = msg.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return out, nil
}

func nullableStatus(status int) any {
	if status == 0 {
		return nil
	}
	return status
}
