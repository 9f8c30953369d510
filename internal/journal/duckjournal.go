// Package journal keeps an append-only record of widget transitions in
// DuckDB so a session's history can be replayed and summarized.
package journal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/file-loader/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// DuckJournal stores transition events in a DuckDB database.
type DuckJournal struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the journal database at dbPath.
// An empty path gives an in-memory journal.
func Open(dbPath string) (*DuckJournal, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	if _, err := db.Exec(`CREATE SEQUENCE IF NOT EXISTS transitions_seq`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			id         BIGINT PRIMARY KEY DEFAULT nextval('transitions_seq'),
			session_id VARCHAR NOT NULL,
			kind       VARCHAR NOT NULL,
			slot_index INTEGER NOT NULL,
			category   VARCHAR,
			file_name  VARCHAR,
			file_size  BIGINT,
			remaining  INTEGER NOT NULL,
			ts         TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &DuckJournal{db: db, dbPath: dbPath}, nil
}

// Record appends one event.
func (j *DuckJournal) Record(ctx context.Context, e models.TransitionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transitions (session_id, kind, slot_index, category, file_name, file_size, remaining, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Kind), e.SlotIndex, e.Category, e.FileName, e.FileSize, e.Remaining, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s for %s: %w", e.Kind, e.SessionID, err)
	}
	return nil
}

// History returns a session's events oldest first. limit <= 0 means all.
func (j *DuckJournal) History(ctx context.Context, sessionID string, limit int) ([]models.TransitionEvent, error) {
	query := `
		SELECT session_id, kind, slot_index, COALESCE(category, ''), COALESCE(file_name, ''),
		       COALESCE(file_size, 0), remaining, ts
		FROM transitions
		WHERE session_id = ?
		ORDER BY id`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	events := make([]models.TransitionEvent, 0)
	for rows.Next() {
		var e models.TransitionEvent
		var kind string
		if err := rows.Scan(&e.SessionID, &kind, &e.SlotIndex, &e.Category, &e.FileName, &e.FileSize, &e.Remaining, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.Kind = models.TransitionKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns how many events of each kind were recorded.
func (j *DuckJournal) CountByKind(ctx context.Context) (map[models.TransitionKind]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM transitions GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("counting transitions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TransitionKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[models.TransitionKind(kind)] = n
	}
	return counts, rows.Err()
}

// DeleteSession drops every event of a session.
func (j *DuckJournal) DeleteSession(ctx context.Context, sessionID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.db.ExecContext(ctx, `DELETE FROM transitions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting history for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the database.
func (j *DuckJournal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
