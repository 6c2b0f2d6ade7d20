package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
)

// TouchUser inserts or updates a user record
func (db *DB) TouchUser(ctx context.Context, userID, displayName string) error {
	if userID == "" {
		return fmt.Errorf("touch user: %w", domerrors.NewValidationError("user_id", "must not be empty"))
	}
	query := `
		INSERT INTO users (id, display_name, created_at, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE users.display_name END,
			last_seen = excluded.last_seen
	`
	start := time.Now()
	now := start.UnixMilli()
	if _, err := db.writer.ExecContext(ctx, query, userID, displayName, now, now); err != nil {
		return db.fail(ctx, "touch_user", err, "user_id", userID)
	}
	warnIfSlow(ctx, "TouchUser", start)
	return nil
}

// GetUser returns nil, nil when the user has never been seen.
func (db *DB) GetUser(ctx context.Context, userID string) (*User, error) {
	query := `SELECT id, display_name, created_at, last_seen FROM users WHERE id = ?`

	var (
		u                   User
		createdAt, lastSeen int64
	)
	err := db.reader.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.DisplayName, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.fail(ctx, "get_user", err, "user_id", userID)
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	u.LastSeen = time.UnixMilli(lastSeen)
	return &u, nil
}

// LoadState returns the stored state, or ModeNone for unknown users.
func (db *DB) LoadState(ctx context.Context, userID string) (ConversationState, error) {
	state := ConversationState{UserID: userID, Mode: ModeNone}
	query := `SELECT mode, meta FROM conversation_state WHERE user_id = ?`

	var (
		mode string
		meta sql.NullString
	)
	err := db.reader.QueryRowContext(ctx, query, userID).Scan(&mode, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, db.fail(ctx, "load_state", err, "user_id", userID)
	}

	state.Mode = Mode(mode)
	if meta.Valid && meta.String != "" {
		var m stateMeta
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			return ConversationState{UserID: userID, Mode: ModeNone}, db.fail(ctx, "load_state", err, "user_id", userID)
		}
		state.PendingLocation = m.PendingLocation
	}
	return state.Normalize(), nil
}

// SaveState upserts the state, last write wins. A pending location is only
// persisted in ModeAwaitingCategory.
func (db *DB) SaveState(ctx context.Context, state ConversationState) error {
	if state.UserID == "" {
		return fmt.Errorf("save state: %w", domerrors.ErrInvalidInput)
	}
	state = state.Normalize()

	var meta sql.NullString
	if state.PendingLocation != nil {
		b, err := json.Marshal(stateMeta{PendingLocation: state.PendingLocation})
		if err != nil {
			return fmt.Errorf("encode state meta: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO conversation_state (user_id, mode, meta, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			mode = excluded.mode,
			meta = excluded.meta,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	if _, err := db.writer.ExecContext(ctx, query, state.UserID, string(state.Mode), meta, start.UnixMilli()); err != nil {
		return db.fail(ctx, "save_state", err, "user_id", state.UserID, "mode", state.Mode)
	}
	warnIfSlow(ctx, "SaveState", start)
	return nil
}

// AppendHistory adds one history row. A zero CreatedAt means now.
func (db *DB) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload := entry.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("append history: payload: %w", domerrors.ErrInvalidInput)
	}

	query := `INSERT INTO history (user_id, event_kind, payload, created_at) VALUES (?, ?, ?, ?)`
	if _, err := db.writer.ExecContext(ctx, query, entry.UserID, entry.EventKind, string(payload), createdAt.UnixMilli()); err != nil {
		return db.fail(ctx, "append_history", err, "user_id", entry.UserID, "event_kind", entry.EventKind)
	}
	return nil
}

// RecentHistory returns up to limit entries for the user, newest first.
func (db *DB) RecentHistory(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, user_id, event_kind, payload, created_at
		FROM history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.reader.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, db.fail(ctx, "recent_history", err, "user_id", userID)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e         HistoryEntry
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventKind, &payload, &createdAt); err != nil {
			return nil, db.fail(ctx, "recent_history", err, "user_id", userID)
		}
		e.Payload = json.RawMessage(payload)
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, db.fail(ctx, "recent_history", err, "user_id", userID)
	}
	return entries, nil
}

// DeleteHistoryBefore removes history rows created before cutoff and
// returns how many were deleted.
func (db *DB) DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	res, err := db.writer.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, db.fail(ctx, "delete_history", err)
	}
	warnIfSlow(ctx, "DeleteHistoryBefore", start)
	return res.RowsAffected()
}

// RecordSearch appends one search log line.
func (db *DB) RecordSearch(ctx context.Context, userID, query string) error {
	stmt := `INSERT INTO search_logs (user_id, query, created_at) VALUES (?, ?, ?)`
	if _, err := db.writer.ExecContext(ctx, stmt, userID, query, time.Now().UnixMilli()); err != nil {
		return db.fail(ctx, "record_search", err, "user_id", userID)
	}
	return nil
}

// RecentSearches returns up to limit search logs for the user, newest first.
func (db *DB) RecentSearches(ctx context.Context, userID string, limit int) ([]SearchLog, error) {
	query := `
		SELECT id, user_id, query, created_at
		FROM search_logs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.reader.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, db.fail(ctx, "recent_searches", err, "user_id", userID)
	}
	defer func() { _ = rows.Close() }()

	var logs []SearchLog
	for rows.Next() {
		var (
			l         SearchLog
			createdAt int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Query, &createdAt); err != nil {
			return nil, db.fail(ctx, "recent_searches", err, "user_id", userID)
		}
		l.CreatedAt = time.UnixMilli(createdAt)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, db.fail(ctx, "recent_searches", err, "user_id", userID)
	}
	return logs, nil
}

// Counts returns the row count of every table, keyed by table name.
func (db *DB) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(schema))
	for _, table := range schema {
		var n int64
		// Table names come from the fixed schema list.
		if err := db.reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.name).Scan(&n); err != nil {
			return nil, db.fail(ctx, "count", err, "table", table.name)
		}
		counts[table.name] = n
	}
	return counts, nil
}
