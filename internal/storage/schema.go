package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		last_seen INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen);
	`},
	{"conversation_state", `
	CREATE TABLE IF NOT EXISTS conversation_state (
		user_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL CHECK(mode IN ('NONE', 'AWAITING_PLACE_NAME', 'AWAITING_LOCATION', 'AWAITING_CATEGORY')),
		meta TEXT,
		updated_at INTEGER NOT NULL
	);
	`},
	{"history", `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		event_kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`},
	{"search_logs", `
	CREATE TABLE IF NOT EXISTS search_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_logs_user ON search_logs(user_id, created_at);
	`},
}

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range schema {
		if _, err := db.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}
