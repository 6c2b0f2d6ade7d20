package storage

import (
	"encoding/json"
	"time"
)

// Mode is the conversation step a user is in.
type Mode string

// Conversation modes.
const (
	ModeNone              Mode = "NONE"
	ModeAwaitingPlaceName Mode = "AWAITING_PLACE_NAME"
	ModeAwaitingLocation  Mode = "AWAITING_LOCATION"
	ModeAwaitingCategory  Mode = "AWAITING_CATEGORY"
)

// Valid reports whether m is one of the four known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeAwaitingPlaceName, ModeAwaitingLocation, ModeAwaitingCategory:
		return true
	}
	return false
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// User is a LINE user the bot has seen at least once.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// ConversationState is the single live conversation record of a user.
// PendingLocation is only kept while Mode is ModeAwaitingCategory.
type ConversationState struct {
	UserID          string    `json:"user_id"`
	Mode            Mode      `json:"mode"`
	PendingLocation *Location `json:"pending_location,omitempty"`
}

// Normalize drops a pending location outside ModeAwaitingCategory and maps
// unknown modes to ModeNone.
func (s ConversationState) Normalize() ConversationState {
	if !s.Mode.Valid() {
		s.Mode = ModeNone
	}
	if s.Mode != ModeAwaitingCategory {
		s.PendingLocation = nil
	}
	return s
}

// HistoryEntry is one append-only record of an inbound event.
type HistoryEntry struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	EventKind string          `json:"event_kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SearchLog is one recorded place query.
type SearchLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// stateMeta is the JSON stored in conversation_state.meta.
type stateMeta struct {
	PendingLocation *Location `json:"pending_location,omitempty"`
}
