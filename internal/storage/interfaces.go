// Package storage persists users, conversation state, history and search
// logs in SQLite, with an optional Redis store for conversation state.
package storage

import (
	"context"
	"time"
)

// UserRepository tracks user identities.
type UserRepository interface {
	// TouchUser upserts the user and sets last seen to now. An empty
	// displayName keeps the stored one.
	TouchUser(ctx context.Context, userID, displayName string) error
	GetUser(ctx context.Context, userID string) (*User, error)
}

// StateStore holds the live conversation state per user.
type StateStore interface {
	// LoadState returns ModeNone with no location for unknown users.
	LoadState(ctx context.Context, userID string) (ConversationState, error)
	SaveState(ctx context.Context, state ConversationState) error
}

// HistoryRepository is the append-only event log.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	RecentHistory(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SearchLogRepository records place queries.
type SearchLogRepository interface {
	RecordSearch(ctx context.Context, userID, query string) error
	RecentSearches(ctx context.Context, userID string, limit int) ([]SearchLog, error)
}

var (
	_ UserRepository      = (*DB)(nil)
	_ StateStore          = (*DB)(nil)
	_ HistoryRepository   = (*DB)(nil)
	_ SearchLogRepository = (*DB)(nil)
	_ StateStore          = (*RedisStateStore)(nil)
)
