package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/pkg/metrics"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLiteStore persists the review log in a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	closeOnce sync.Once
	wg        sync.WaitGroup
	stopChan  chan struct{}
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, stopChan: make(chan struct{})}
	if err := s.migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate sqlite: %w", err), db.Close())
	}

	o := newOptions(opts)
	s.updateMetrics()
	ticker(ctx, &s.wg, s.stopChan, o.metricsUpdateInterval, s.updateMetrics)

	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS revlog (
			id INTEGER PRIMARY KEY,
			event_id TEXT,
			card_id INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			kind INTEGER NOT NULL,
			last_interval INTEGER NOT NULL,
			button INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_revlog_event_id ON revlog(event_id) WHERE event_id <> '';`,
		`CREATE INDEX IF NOT EXISTS idx_revlog_ts ON revlog(ts);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append implements Store.Append.
func (s *SQLiteStore) Append(ctx context.Context, e model.StudyEvent) error {
	start := time.Now()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revlog (event_id, card_id, ts, kind, last_interval, button)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.CardID, e.Timestamp, int32(e.Kind), e.LastInterval, e.Button,
	)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "append_failed")
		return fmt.Errorf("append revlog %s: %w", e.EventID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		metrics.RecordEventDuplicate()
		return nil
	}

	metrics.RecordStoreAppend(sinceMs(start))
	return nil
}

// Events implements Store.Events.
func (s *SQLiteStore) Events(ctx context.Context) ([]model.StudyEvent, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(sinceMs(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, card_id, ts, kind, last_interval, button FROM revlog`)
	if err != nil {
		return nil, fmt.Errorf("query revlog: %w", err)
	}
	defer rows.Close()

	var out []model.StudyEvent
	for rows.Next() {
		var (
			e    model.StudyEvent
			kind int32
		)
		if err := rows.Scan(&e.EventID, &e.CardID, &e.Timestamp, &kind, &e.LastInterval, &e.Button); err != nil {
			return nil, fmt.Errorf("scan revlog: %w", err)
		}
		e.Kind = model.EventKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revlog: %w", err)
	}
	return out, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revlog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count revlog: %w", err)
	}
	return n, nil
}

// Close stops the metrics goroutine and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) updateMetrics() {
	if n, err := s.Count(context.Background()); err == nil {
		metrics.UpdateStoreEvents(n)
	}
}
