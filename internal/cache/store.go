// Package cache is the local durable mirror of the memory list. It is a
// best-effort fallback, never the source of truth: reads return absence on
// any failure and writes are logged and swallowed, so the optimistic-update
// flow is never interrupted by cache trouble.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/gajni/gajni-go/internal/types"
)

// Store persists per-namespace snapshots of the memory list, plus the auth
// session, in a single SQLite file.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the cache database at path and enables WAL journal
// mode. The parent directory is created if missing.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS Snapshots (
            Namespace TEXT PRIMARY KEY,
            Payload BLOB NOT NULL,
            UpdatedAt TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS Sessions (
            Slot INTEGER PRIMARY KEY CHECK (Slot = 0),
            Payload BLOB NOT NULL,
            UpdatedAt TIMESTAMP NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Read loads the snapshot stored under namespace. A missing key or a payload
// that fails to deserialize both report absence; the latter is logged.
func (s *Store) Read(ctx context.Context, namespace string) ([]types.MemoryRecord, bool) {
	var payload []byte
	row := s.db.QueryRowContext(ctx, `SELECT Payload FROM Snapshots WHERE Namespace = ?`, namespace)
	if err := row.Scan(&payload); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error().Err(err).Str("namespace", namespace).Msg("cache read failed")
		}
		return nil, false
	}
	var records []types.MemoryRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		s.log.Error().Err(err).Str("namespace", namespace).Msg("cache snapshot is malformed, ignoring")
		return nil, false
	}
	return records, true
}

// Write overwrites the snapshot stored under namespace with the full list.
// Failures are logged and swallowed.
func (s *Store) Write(ctx context.Context, namespace string, records []types.MemoryRecord) {
	payload, err := json.Marshal(records)
	if err != nil {
		cacheWriteFailures.Inc()
		s.log.Error().Err(err).Str("namespace", namespace).Msg("cache snapshot encode failed")
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO Snapshots (Namespace, Payload, UpdatedAt) VALUES (?,?,?)
         ON CONFLICT(Namespace) DO UPDATE SET Payload = excluded.Payload, UpdatedAt = excluded.UpdatedAt`,
		namespace, payload, time.Now().UTC())
	if err != nil {
		cacheWriteFailures.Inc()
		s.log.Error().Err(err).Str("namespace", namespace).Int("records", len(records)).Msg("cache write failed")
	}
}

// ReadSession loads the persisted auth session, if any. Same best-effort
// contract as Read.
func (s *Store) ReadSession(ctx context.Context) (*types.Session, bool) {
	var payload []byte
	row := s.db.QueryRowContext(ctx, `SELECT Payload FROM Sessions WHERE Slot = 0`)
	if err := row.Scan(&payload); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error().Err(err).Msg("session read failed")
		}
		return nil, false
	}
	var sess types.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		s.log.Error().Err(err).Msg("persisted session is malformed, ignoring")
		return nil, false
	}
	return &sess, true
}

// WriteSession persists the auth session so a restart can restore it.
func (s *Store) WriteSession(ctx context.Context, sess *types.Session) {
	payload, err := json.Marshal(sess)
	if err != nil {
		s.log.Error().Err(err).Msg("session encode failed")
		return
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO Sessions (Slot, Payload, UpdatedAt) VALUES (0,?,?)
         ON CONFLICT(Slot) DO UPDATE SET Payload = excluded.Payload, UpdatedAt = excluded.UpdatedAt`,
		payload, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("session write failed")
	}
}

// ClearSession removes the persisted session (sign-out).
func (s *Store) ClearSession(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM Sessions WHERE Slot = 0`); err != nil {
		s.log.Error().Err(err).Msg("session clear failed")
	}
}
