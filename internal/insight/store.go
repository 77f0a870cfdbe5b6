// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package insight

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/heytcass/jasper/internal/jasperr"
	"github.com/heytcass/jasper/lib/clock"
	"github.com/heytcass/jasper/lib/sqlitepool"
)

const currentPointerKey = "current_insight_id"

// Store is the durable insight store: an append-only table of
// Insight rows plus a kv table holding the current-insight pointer.
// Append advances the pointer to the row it just inserted in the same
// transaction, so GetCurrent's read of the pointer is always the
// latest committed insight; there is no separate reconciliation step
// against a stored fingerprint, since Retain's "never delete the
// current insight" rule keeps the pointer forever valid. Append runs
// on a single connection to preserve the single-writer invariant;
// List and GetByID may run concurrently on other connections from the
// same pool.
type Store struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// Open opens (creating if necessary) the SQLite-backed insight store at
// path and ensures its schema exists.
func Open(path string, c clock.Clock) (*Store, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      path,
		PoolSize:  4,
		OnConnect: createSchema,
	})
	if err != nil {
		return nil, jasperr.Wrap(jasperr.StoreError, "opening insight store", err)
	}
	return &Store{pool: pool, clock: c}, nil
}

// Close releases the store's connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func createSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, `
		CREATE TABLE IF NOT EXISTS insights (
			id                  INTEGER PRIMARY KEY,
			created_at          INTEGER NOT NULL,
			context_fingerprint TEXT NOT NULL,
			emoji               TEXT NOT NULL,
			preview             TEXT NOT NULL,
			body                TEXT NOT NULL,
			urgency             INTEGER NOT NULL,
			source_model        TEXT NOT NULL,
			token_cost          INTEGER
		);

		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, nil)
}

// Append assigns draft an id and created_at, inserts it, and advances
// the current pointer to it, all in one transaction. If the commit
// fails, the pointer is not advanced and the draft is discarded.
func (s *Store) Append(ctx context.Context, draft Draft) (Insight, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	result := Insight{
		CreatedAt:          s.clock.Now(),
		ContextFingerprint: draft.ContextFingerprint,
		Emoji:              draft.Emoji,
		Preview:            draft.Preview,
		Body:               draft.Body,
		Urgency:            draft.Urgency,
		SourceModel:        draft.SourceModel,
		TokenCost:          draft.TokenCost,
	}

	err = sqlitex.Execute(conn, "BEGIN IMMEDIATE", nil)
	if err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlitex.Execute(conn, "ROLLBACK", nil)
		}
	}()

	args := []any{
		result.CreatedAt.UnixNano(),
		result.ContextFingerprint,
		result.Emoji,
		result.Preview,
		result.Body,
		result.Urgency,
		result.SourceModel,
		nullableInt64(result.TokenCost),
	}
	err = sqlitex.Execute(conn, `
		INSERT INTO insights
			(created_at, context_fingerprint, emoji, preview, body, urgency, source_model, token_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, &sqlitex.ExecOptions{Args: args})
	if err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "insert insight", err)
	}
	result.ID = conn.LastInsertRowID()

	err = sqlitex.Execute(conn, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, &sqlitex.ExecOptions{Args: []any{currentPointerKey, fmt.Sprintf("%d", result.ID)}})
	if err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "advance current pointer", err)
	}

	if err := sqlitex.Execute(conn, "COMMIT", nil); err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "commit", err)
	}
	committed = true

	return result, nil
}

// GetCurrent returns the insight the current pointer refers to, or
// (Insight{}, false, nil) if the store is empty.
func (s *Store) GetCurrent(ctx context.Context) (Insight, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Insight{}, false, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	var idText string
	err = sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{currentPointerKey},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			idText = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return Insight{}, false, jasperr.Wrap(jasperr.StoreError, "read current pointer", err)
	}
	if idText == "" {
		return Insight{}, false, nil
	}

	var id int64
	if _, err := fmt.Sscanf(idText, "%d", &id); err != nil {
		return Insight{}, false, jasperr.Wrap(jasperr.StoreError, "parse current pointer", err)
	}

	found, err := s.getByIDOnConn(conn, id)
	if err != nil {
		return Insight{}, false, err
	}
	if found == nil {
		return Insight{}, false, nil
	}
	return *found, true, nil
}

// GetByID returns the insight with the given id, or a jasperr.NotFound
// error if none exists.
func (s *Store) GetByID(ctx context.Context, id int64) (Insight, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Insight{}, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	found, err := s.getByIDOnConn(conn, id)
	if err != nil {
		return Insight{}, err
	}
	if found == nil {
		return Insight{}, jasperr.New(jasperr.NotFound, fmt.Sprintf("insight %d not found", id))
	}
	return *found, nil
}

func (s *Store) getByIDOnConn(conn *sqlite.Conn, id int64) (*Insight, error) {
	var found *Insight
	err := sqlitex.Execute(conn, `
		SELECT id, created_at, context_fingerprint, emoji, preview, body, urgency, source_model, token_cost
		FROM insights WHERE id = ?
	`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = scanInsight(stmt)
			return nil
		},
	})
	if err != nil {
		return nil, jasperr.Wrap(jasperr.StoreError, "select insight", err)
	}
	return found, nil
}

// List returns up to limit insights with id > sinceID, ordered by id
// ascending.
func (s *Store) List(ctx context.Context, sinceID int64, limit int) ([]Insight, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	var results []Insight
	err = sqlitex.Execute(conn, `
		SELECT id, created_at, context_fingerprint, emoji, preview, body, urgency, source_model, token_cost
		FROM insights WHERE id > ? ORDER BY id ASC LIMIT ?
	`, &sqlitex.ExecOptions{
		Args: []any{sinceID, limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			results = append(results, *scanInsight(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, jasperr.Wrap(jasperr.StoreError, "list insights", err)
	}
	return results, nil
}

// CountSince returns the number of insights created at or after since,
// used to enforce the configured daily cap without loading the rows
// themselves.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM insights WHERE created_at >= ?`, &sqlitex.ExecOptions{
		Args: []any{since.UnixNano()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, jasperr.Wrap(jasperr.StoreError, "count insights since", err)
	}
	return count, nil
}

// Retain deletes insights beyond policy.RetainLastN, always keeping the
// current insight regardless of age.
func (s *Store) Retain(ctx context.Context, policy RetentionPolicy) (int, error) {
	if policy.RetainLastN <= 0 {
		return 0, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, jasperr.Wrap(jasperr.StoreError, "take connection", err)
	}
	defer s.pool.Put(conn)

	current, hasCurrent, err := s.GetCurrent(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int
	err = sqlitex.Execute(conn, `
		DELETE FROM insights
		WHERE id NOT IN (
			SELECT id FROM insights ORDER BY id DESC LIMIT ?
		)
		AND id != ?
	`, &sqlitex.ExecOptions{
		Args: []any{policy.RetainLastN, currentIDOrZero(hasCurrent, current)},
	})
	if err != nil {
		return 0, jasperr.Wrap(jasperr.StoreError, "retain", err)
	}
	deleted = conn.Changes()

	return deleted, nil
}

func currentIDOrZero(hasCurrent bool, current Insight) int64 {
	if !hasCurrent {
		return 0
	}
	return current.ID
}

func scanInsight(stmt *sqlite.Stmt) *Insight {
	i := &Insight{
		ID:                 stmt.ColumnInt64(0),
		ContextFingerprint: stmt.ColumnText(2),
		Emoji:              stmt.ColumnText(3),
		Preview:            stmt.ColumnText(4),
		Body:               stmt.ColumnText(5),
		Urgency:            int(stmt.ColumnInt(6)),
		SourceModel:        stmt.ColumnText(7),
	}
	i.CreatedAt = nanosToTime(stmt.ColumnInt64(1))
	if stmt.ColumnType(8) != sqlite.TypeNull {
		cost := stmt.ColumnInt64(8)
		i.TokenCost = &cost
	}
	return i
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nanosToTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}
