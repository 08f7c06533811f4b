package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/meshstream/core"
)

//go:embed schema.sql
var schema string

// SQLiteStore is a Store backed by a sqlite database file.
type SQLiteStore struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		// Expand leading ~ to actual home directory.
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(home, path[2:])
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}

	// Enable WAL mode and foreign keys.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Append adds messages to a thread inside one transaction.
func (s *SQLiteStore) Append(ctx context.Context, threadID, worker string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO threads (id, worker, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		threadID, worker, now, now); err != nil {
		return fmt.Errorf("history: upsert thread: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE thread_id = ?`, threadID).Scan(&next); err != nil {
		return fmt.Errorf("history: next seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (thread_id, seq, body) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range msgs {
		body, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("history: encode message: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, threadID, next+i, string(body)); err != nil {
			return fmt.Errorf("history: insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Thread loads a thread with its messages in append order.
func (s *SQLiteStore) Thread(ctx context.Context, threadID string) (*Thread, error) {
	th := &Thread{ID: threadID}
	err := s.conn.QueryRowContext(ctx,
		`SELECT worker, updated_at FROM threads WHERE id = ?`, threadID).Scan(&th.Worker, &th.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT body FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var m core.Message
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			return nil, fmt.Errorf("history: decode message: %w", err)
		}
		th.Messages = append(th.Messages, m)
	}
	return th, rows.Err()
}

// List returns all threads, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT t.id, t.worker, t.updated_at, COUNT(m.seq)
		FROM threads t LEFT JOIN messages m ON m.thread_id = t.id
		GROUP BY t.id
		ORDER BY t.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Worker, &sum.UpdatedAt, &sum.Messages); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.conn.Close() }
