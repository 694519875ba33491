// Package session persists the local AR analysis watch history and report
// snapshots so reports can be re-rendered without a backend round trip.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/models/store"
	"github.com/rcm-tools/rcm-atlas/pkg/store/duckdb"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	RecordWatch(ctx context.Context, ws store.WatchedSession) error
	FinishWatch(ctx context.Context, sessionID, finalStatus string, at time.Time) error
	// FinishWithReport closes a watch and stores its report snapshot in one
	// transaction, so a crash never leaves a finished watch without its
	// report or vice versa.
	FinishWithReport(ctx context.Context, sessionID, finalStatus string, at time.Time, snap store.ReportSnapshot) error
	ListWatches(ctx context.Context) ([]store.WatchedSession, error)
	SaveReport(ctx context.Context, snap store.ReportSnapshot) error
	GetReport(ctx context.Context, sessionID string) (*store.ReportSnapshot, error)
}

type sessionStore struct {
	db *sql.DB
}

// exec routes through the context transaction when one is present.
func (s *sessionStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &sessionStore{db: db}, nil
}

func (s *sessionStore) RecordWatch(ctx context.Context, ws store.WatchedSession) error {
	query := `
		INSERT OR REPLACE INTO watched_sessions (
			session_id, practice_name, final_status, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?)`

	if ws.StartedAt.IsZero() {
		ws.StartedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx, query,
		ws.SessionID, ws.PracticeName, ws.FinalStatus, ws.StartedAt, ws.FinishedAt)
	if err != nil {
		return fmt.Errorf("record watch: %w", err)
	}
	return nil
}

func (s *sessionStore) FinishWatch(ctx context.Context, sessionID, finalStatus string, at time.Time) error {
	query := `UPDATE watched_sessions SET final_status = ?, finished_at = ? WHERE session_id = ?`
	res, err := s.exec(ctx, query, finalStatus, at, sessionID)
	if err != nil {
		return fmt.Errorf("finish watch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sessionStore) FinishWithReport(
	ctx context.Context,
	sessionID, finalStatus string,
	at time.Time,
	snap store.ReportSnapshot,
) error {
	return duckdb.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.FinishWatch(ctx, sessionID, finalStatus, at); err != nil {
			return err
		}
		return s.SaveReport(ctx, snap)
	})
}

func (s *sessionStore) ListWatches(ctx context.Context) ([]store.WatchedSession, error) {
	query := `
		SELECT session_id, practice_name, final_status, started_at, finished_at
		FROM watched_sessions
		ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	defer rows.Close()

	var watches []store.WatchedSession
	for rows.Next() {
		var ws store.WatchedSession
		var finished sql.NullTime
		if err := rows.Scan(&ws.SessionID, &ws.PracticeName, &ws.FinalStatus, &ws.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			ws.FinishedAt = &t
		}
		watches = append(watches, ws)
	}
	return watches, rows.Err()
}

func (s *sessionStore) SaveReport(ctx context.Context, snap store.ReportSnapshot) error {
	query := `
		INSERT OR REPLACE INTO report_snapshots (session_id, payload, fetched_at)
		VALUES (?, ?, ?)`

	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	if _, err := s.exec(ctx, query, snap.SessionID, string(snap.Payload), snap.FetchedAt); err != nil {
		return fmt.Errorf("save report snapshot: %w", err)
	}
	return nil
}

func (s *sessionStore) GetReport(ctx context.Context, sessionID string) (*store.ReportSnapshot, error) {
	query := `SELECT session_id, payload, fetched_at FROM report_snapshots WHERE session_id = ?`

	var snap store.ReportSnapshot
	var payload string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&snap.SessionID, &payload, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report snapshot: %w", err)
	}
	snap.Payload = []byte(payload)
	return &snap, nil
}
